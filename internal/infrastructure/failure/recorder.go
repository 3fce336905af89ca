package failure

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/ocr-pipeline/internal/core/domain"
	"github.com/kirillkom/ocr-pipeline/internal/core/ports"
)

// Recorder captures terminal job failures: one failure_logs row plus a
// plain-text report artifact for human review. Capture is best effort and
// never returns an error: a broken recorder must not mask the job's own
// failure state.
type Recorder struct {
	failures ports.FailureRepository
	storage  ports.ObjectStorage
	now      func() time.Time
}

func NewRecorder(failures ports.FailureRepository, storage ports.ObjectStorage) *Recorder {
	return &Recorder{
		failures: failures,
		storage:  storage,
		now:      time.Now,
	}
}

func (r *Recorder) Record(ctx context.Context, jobID, documentID, errMessage, errType string, retryCount int) {
	log := domain.FailureLog{
		ID:           uuid.NewString(),
		JobID:        jobID,
		DocumentID:   documentID,
		ErrorMessage: errMessage,
		ErrorType:    errType,
		RetryCount:   retryCount,
		Reviewed:     domain.ReviewPending,
		CreatedAt:    r.now().UTC(),
	}

	if err := r.failures.Insert(ctx, &log); err != nil {
		slog.Error("failure log insert failed", "job_id", jobID, "error", err)
	}

	key := fmt.Sprintf("reports/failure_%s.txt", jobID)
	if err := r.storage.Save(ctx, key, strings.NewReader(renderReport(log))); err != nil {
		slog.Error("failure report write failed", "job_id", jobID, "error", err)
	}
}

func renderReport(log domain.FailureLog) string {
	rule := strings.Repeat("=", 80)
	subRule := strings.Repeat("-", 80)

	errType := log.ErrorType
	if errType == "" {
		errType = "Unknown"
	}

	lines := []string{
		rule,
		"OCR PIPELINE FAILURE REPORT",
		rule,
		"",
		"Failure ID: " + log.ID,
		"Job ID: " + log.JobID,
		"Document ID: " + log.DocumentID,
		"Timestamp: " + log.CreatedAt.Format(time.RFC3339),
		fmt.Sprintf("Retry Count: %d", log.RetryCount),
		"",
		"ERROR DETAILS",
		subRule,
		"Error Type: " + errType,
		"Error Message: " + log.ErrorMessage,
		"",
		rule,
	}
	return strings.Join(lines, "\n")
}
