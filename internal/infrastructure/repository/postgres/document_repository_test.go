package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/ocr-pipeline/internal/core/domain"
)

func newDocRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestDocumentGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, filename, storage_path").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDocumentUpdateStatusReturnsNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", string(domain.StatusProcessing)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusProcessing)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDocumentGetByIDMapsFields(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "filename", "storage_path", "file_type", "file_size", "status", "uploaded_at"}).
		AddRow("doc-1", "scan.pdf", "uploads/doc-1.pdf", "PDF", int64(2048), "pending", sampleTime(t))

	mock.ExpectQuery("SELECT id, filename, storage_path").
		WithArgs("doc-1").
		WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.FileType != domain.FormatPDF {
		t.Fatalf("expected PDF file type, got %v", doc.FileType)
	}
	if doc.Status != domain.StatusPending {
		t.Fatalf("expected pending status, got %v", doc.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
