package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/ocr-pipeline/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (id, filename, storage_path, file_type, file_size, status, uploaded_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		doc.ID, doc.Filename, doc.StoragePath, string(doc.FileType), doc.FileSize, string(doc.Status), doc.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, storage_path, file_type, file_size, status, uploaded_at
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2
WHERE id = $1
`, id, string(status))
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document status", fmt.Errorf("id %s", id))
	}
	return nil
}

func (r *DocumentRepository) ListRecent(ctx context.Context, limit int) ([]domain.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, filename, storage_path, file_type, file_size, status, uploaded_at
FROM documents
ORDER BY uploaded_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var fileType, status string

	err := row.Scan(&doc.ID, &doc.Filename, &doc.StoragePath, &fileType, &doc.FileSize, &status, &doc.UploadedAt)
	if err != nil {
		return nil, err
	}
	doc.FileType = domain.Format(fileType)
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}
