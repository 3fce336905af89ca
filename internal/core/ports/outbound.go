package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/ocr-pipeline/internal/core/domain"
)

// DocumentRepository persists and reads document metadata.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error
	ListRecent(ctx context.Context, limit int) ([]domain.Document, error)
}

// JobRepository persists processing-job state. The orchestrator is the sole
// writer of a job's status and current_stage.
type JobRepository interface {
	Create(ctx context.Context, job *domain.ProcessingJob) error
	GetByID(ctx context.Context, id string) (*domain.ProcessingJob, error)
	MarkStarted(ctx context.Context, id string, startedAt time.Time) error
	UpdateStage(ctx context.Context, id string, stage domain.Stage) error
	Complete(ctx context.Context, id string, completedAt time.Time) error
	Fail(ctx context.Context, id string, errMessage string, retryCount int, completedAt time.Time) error
}

// ContentRepository persists extraction results, at most one per document.
type ContentRepository interface {
	Save(ctx context.Context, content *domain.ExtractedContent) error
	GetByDocumentID(ctx context.Context, documentID string) (*domain.ExtractedContent, error)
}

// FailureRepository persists failure logs for human review.
type FailureRepository interface {
	Insert(ctx context.Context, failure *domain.FailureLog) error
	List(ctx context.Context, reviewed domain.ReviewStatus, limit int) ([]domain.FailureLog, error)
	MarkReviewed(ctx context.Context, id string, notes string) error
}

// ObjectStorage stores source documents and failure reports.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue dispatches processing requests to the worker pool.
type MessageQueue interface {
	PublishProcessRequest(ctx context.Context, req domain.ProcessRequest) error
	SubscribeProcessRequests(ctx context.Context, handler func(context.Context, domain.ProcessRequest) error) error
}

// FormatDetector resolves a filename to a supported document format. Pure
// string inspection, no I/O.
type FormatDetector interface {
	Detect(filename string) (domain.Format, string, error)
}

// PageExtractor turns a stored file into an ordered page-payload sequence.
type PageExtractor interface {
	ExtractPages(ctx context.Context, storagePath string, format domain.Format) ([]domain.PagePayload, error)
}

// ProgressFunc fires after every page, success or failure.
type ProgressFunc func(done, total int)

// ExtractionService produces combined text, mean confidence and metadata
// from an ordered page sequence.
type ExtractionService interface {
	Extract(ctx context.Context, pages []domain.PagePayload, format domain.Format, progress ProgressFunc) (domain.Extraction, error)
}

// Summarizer asks the generation capability for a whole-document summary.
// The response has no guaranteed structure.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// ResultParser recovers structured content from an opaque model response.
// It never fails: the last tier degrades to a summary-only result.
type ResultParser interface {
	Parse(raw string) domain.ParsedResult
}

// Retrier runs one unit of work with bounded retries and returns the last
// error on exhaustion.
type Retrier interface {
	Execute(ctx context.Context, operation string, fn func(context.Context) error) error
}

// FailureRecorder captures a terminal job failure for human review. It never
// returns an error; its own failures must not mask the job's failure state.
type FailureRecorder interface {
	Record(ctx context.Context, jobID, documentID, errMessage, errType string, retryCount int)
}
