package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/ocr-pipeline/internal/core/domain"
)

type ContentRepository struct {
	db *sql.DB
}

func NewContentRepository(db *sql.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// Save upserts on document_id: reprocessing a document replaces its previous
// result instead of accumulating rows.
func (r *ContentRepository) Save(ctx context.Context, content *domain.ExtractedContent) error {
	metadata := content.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal content metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO extracted_contents (id, document_id, raw_text, summary, confidence_score, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (document_id) DO UPDATE
SET raw_text = EXCLUDED.raw_text,
    summary = EXCLUDED.summary,
    confidence_score = EXCLUDED.confidence_score,
    metadata = EXCLUDED.metadata,
    created_at = EXCLUDED.created_at
`,
		content.ID, content.DocumentID, content.RawText, content.Summary,
		content.Confidence, metadataJSON, content.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save extracted content: %w", err)
	}
	return nil
}

func (r *ContentRepository) GetByDocumentID(ctx context.Context, documentID string) (*domain.ExtractedContent, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, raw_text, summary, confidence_score, metadata, created_at
FROM extracted_contents
WHERE document_id = $1
`, documentID)

	var content domain.ExtractedContent
	var metadataRaw []byte

	err := row.Scan(
		&content.ID, &content.DocumentID, &content.RawText, &content.Summary,
		&content.Confidence, &metadataRaw, &content.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get extracted content", fmt.Errorf("document %s", documentID))
		}
		return nil, fmt.Errorf("scan extracted content: %w", err)
	}

	if err := json.Unmarshal(metadataRaw, &content.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal content metadata: %w", err)
	}
	return &content, nil
}
