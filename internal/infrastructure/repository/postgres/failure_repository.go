package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/ocr-pipeline/internal/core/domain"
)

type FailureRepository struct {
	db *sql.DB
}

func NewFailureRepository(db *sql.DB) *FailureRepository {
	return &FailureRepository{db: db}
}

func (r *FailureRepository) Insert(ctx context.Context, failure *domain.FailureLog) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO failure_logs (id, job_id, document_id, error_message, error_type, retry_count, reviewed, review_notes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		failure.ID, failure.JobID, failure.DocumentID, failure.ErrorMessage, failure.ErrorType,
		failure.RetryCount, string(failure.Reviewed), failure.ReviewNotes, failure.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert failure log: %w", err)
	}
	return nil
}

func (r *FailureRepository) List(ctx context.Context, reviewed domain.ReviewStatus, limit int) ([]domain.FailureLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, job_id, document_id, error_message, error_type, retry_count, reviewed, review_notes, created_at
FROM failure_logs
WHERE reviewed = $1
ORDER BY created_at DESC
LIMIT $2
`, string(reviewed), limit)
	if err != nil {
		return nil, fmt.Errorf("list failure logs: %w", err)
	}
	defer rows.Close()

	var failures []domain.FailureLog
	for rows.Next() {
		var failure domain.FailureLog
		var review string
		err := rows.Scan(
			&failure.ID, &failure.JobID, &failure.DocumentID, &failure.ErrorMessage, &failure.ErrorType,
			&failure.RetryCount, &review, &failure.ReviewNotes, &failure.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan failure log: %w", err)
		}
		failure.Reviewed = domain.ReviewStatus(review)
		failures = append(failures, failure)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failure logs: %w", err)
	}
	return failures, nil
}

func (r *FailureRepository) MarkReviewed(ctx context.Context, id string, notes string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE failure_logs
SET reviewed = $2, review_notes = $3
WHERE id = $1
`, id, string(domain.ReviewReviewed), notes)
	if err != nil {
		return fmt.Errorf("mark failure reviewed: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrJobNotFound, "mark failure reviewed", fmt.Errorf("id %s", id))
	}
	return nil
}
