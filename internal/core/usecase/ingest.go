package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/ocr-pipeline/internal/core/domain"
	"github.com/kirillkom/ocr-pipeline/internal/core/ports"
)

// Ingestor accepts an uploaded file, persists it with its document and job
// rows, and dispatches a processing request. Unsupported formats are rejected
// before anything is stored.
type Ingestor struct {
	documents ports.DocumentRepository
	jobs      ports.JobRepository
	storage   ports.ObjectStorage
	queue     ports.MessageQueue
	detector  ports.FormatDetector
	now       func() time.Time
}

func NewIngestor(
	documents ports.DocumentRepository,
	jobs ports.JobRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	detector ports.FormatDetector,
) *Ingestor {
	return &Ingestor{
		documents: documents,
		jobs:      jobs,
		storage:   storage,
		queue:     queue,
		detector:  detector,
		now:       time.Now,
	}
}

func (uc *Ingestor) Upload(ctx context.Context, filename string, body io.Reader) (*domain.Document, *domain.ProcessingJob, error) {
	format, _, err := uc.detector.Detect(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("detect format: %w", err)
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("uploads/%s_%s", id, sanitizeFilename(filename))
	now := uc.now().UTC()

	counted := &countingReader{r: body}
	if err := uc.storage.Save(ctx, storageKey, counted); err != nil {
		return nil, nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:          id,
		Filename:    filename,
		StoragePath: storageKey,
		FileType:    format,
		FileSize:    counted.n,
		Status:      domain.StatusPending,
		UploadedAt:  now,
	}
	if err := uc.documents.Create(ctx, doc); err != nil {
		return nil, nil, fmt.Errorf("create document row: %w", err)
	}

	job := &domain.ProcessingJob{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Status:     domain.JobPending,
		CreatedAt:  now,
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		return nil, nil, fmt.Errorf("create job row: %w", err)
	}

	req := domain.ProcessRequest{DocumentID: doc.ID, JobID: job.ID}
	if err := uc.queue.PublishProcessRequest(ctx, req); err != nil {
		return nil, nil, fmt.Errorf("publish process request: %w", err)
	}

	return doc, job, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
