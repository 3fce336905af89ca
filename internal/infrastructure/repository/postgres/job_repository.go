package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/ocr-pipeline/internal/core/domain"
)

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *domain.ProcessingJob) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO processing_jobs (id, document_id, status, current_stage, retry_count, error_message, created_at, started_at, completed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		job.ID, job.DocumentID, string(job.Status), string(job.CurrentStage), job.RetryCount,
		job.ErrorMessage, job.CreatedAt, job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.ProcessingJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, status, current_stage, retry_count, error_message, created_at, started_at, completed_at
FROM processing_jobs
WHERE id = $1
`, id)

	var job domain.ProcessingJob
	var status, stage string

	err := row.Scan(
		&job.ID, &job.DocumentID, &status, &stage, &job.RetryCount,
		&job.ErrorMessage, &job.CreatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get job", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	job.Status = domain.JobStatus(status)
	job.CurrentStage = domain.Stage(stage)
	return &job, nil
}

func (r *JobRepository) MarkStarted(ctx context.Context, id string, startedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE processing_jobs
SET status = $2, started_at = $3
WHERE id = $1
`, id, string(domain.JobProcessing), startedAt)
	if err != nil {
		return fmt.Errorf("mark job started: %w", err)
	}
	return checkJobAffected(res, "mark job started", id)
}

func (r *JobRepository) UpdateStage(ctx context.Context, id string, stage domain.Stage) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE processing_jobs
SET current_stage = $2
WHERE id = $1
`, id, string(stage))
	if err != nil {
		return fmt.Errorf("update job stage: %w", err)
	}
	return checkJobAffected(res, "update job stage", id)
}

func (r *JobRepository) Complete(ctx context.Context, id string, completedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE processing_jobs
SET status = $2, current_stage = '', completed_at = $3
WHERE id = $1
`, id, string(domain.JobCompleted), completedAt)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return checkJobAffected(res, "complete job", id)
}

func (r *JobRepository) Fail(ctx context.Context, id string, errMessage string, retryCount int, completedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE processing_jobs
SET status = $2, current_stage = $3, error_message = $4, retry_count = $5, completed_at = $6
WHERE id = $1
`, id, string(domain.JobFailed), string(domain.StageFailed), errMessage, retryCount, completedAt)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return checkJobAffected(res, "fail job", id)
}

func checkJobAffected(res sql.Result, op, id string) error {
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrJobNotFound, op, fmt.Errorf("id %s", id))
	}
	return nil
}
