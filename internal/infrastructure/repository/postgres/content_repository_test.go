package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/ocr-pipeline/internal/core/domain"
)

func sampleTime(t *testing.T) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, "2026-08-20T10:00:00Z")
	if err != nil {
		t.Fatalf("parse sample time: %v", err)
	}
	return ts
}

func newContentRepoWithMock(t *testing.T) (*ContentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ContentRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestContentSaveUpsertsOnDocumentID(t *testing.T) {
	repo, mock, done := newContentRepoWithMock(t)
	defer done()

	createdAt := sampleTime(t)
	mock.ExpectExec("INSERT INTO extracted_contents").
		WithArgs("content-1", "doc-1", "raw", "summary", 0.85, sqlmock.AnyArg(), createdAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Save(context.Background(), &domain.ExtractedContent{
		ID:         "content-1",
		DocumentID: "doc-1",
		RawText:    "raw",
		Summary:    "summary",
		Confidence: 0.85,
		Metadata:   map[string]any{"page_count": 2},
		CreatedAt:  createdAt,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestContentGetByDocumentIDUnmarshalsMetadata(t *testing.T) {
	repo, mock, done := newContentRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "document_id", "raw_text", "summary", "confidence_score", "metadata", "created_at"}).
		AddRow("content-1", "doc-1", "raw", "summary", 0.85, []byte(`{"page_count":2}`), sampleTime(t))

	mock.ExpectQuery("SELECT id, document_id, raw_text").
		WithArgs("doc-1").
		WillReturnRows(rows)

	content, err := repo.GetByDocumentID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByDocumentID() error = %v", err)
	}
	if content.Metadata["page_count"] != float64(2) {
		t.Fatalf("expected metadata to round-trip, got %v", content.Metadata)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestContentGetByDocumentIDNotFound(t *testing.T) {
	repo, mock, done := newContentRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, document_id, raw_text").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByDocumentID(context.Background(), "missing")
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
