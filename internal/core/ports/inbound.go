package ports

import (
	"context"
	"io"

	"github.com/kirillkom/ocr-pipeline/internal/core/domain"
)

// DocumentProcessor runs one document through the pipeline. Invoked exactly
// once per uploaded document by the dispatch layer.
type DocumentProcessor interface {
	Process(ctx context.Context, documentID, jobID string) error
}

// DocumentIngestor stores an uploaded file, creates the document and job
// rows, and enqueues a processing request.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename string, body io.Reader) (*domain.Document, *domain.ProcessingJob, error)
}
