package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/ocr-pipeline/internal/core/domain"
	"github.com/kirillkom/ocr-pipeline/internal/core/ports"
)

const orchestrationErrorType = "orchestration_error"

type ProcessorConfig struct {
	// MaxRetries mirrors the retry executor bound; recorded on the failure
	// row when the orchestrated step exhausts its attempts.
	MaxRetries int
	// StepTimeout is the per-attempt deadline of the orchestrated step.
	StepTimeout time.Duration
	// MaxConcurrentSteps caps orchestrated steps process-wide, across all
	// jobs this worker runs.
	MaxConcurrentSteps int
}

func (c ProcessorConfig) normalize() ProcessorConfig {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.StepTimeout <= 0 {
		c.StepTimeout = 5 * time.Minute
	}
	if c.MaxConcurrentSteps <= 0 {
		c.MaxConcurrentSteps = 3
	}
	return c
}

// Processor drives one document through the pipeline stages. It is the sole
// writer of the job's status and current_stage for the lifetime of a call.
type Processor struct {
	documents  ports.DocumentRepository
	jobs       ports.JobRepository
	contents   ports.ContentRepository
	pages      ports.PageExtractor
	extraction ports.ExtractionService
	summarizer ports.Summarizer
	parser     ports.ResultParser
	retrier    ports.Retrier
	failures   ports.FailureRecorder

	cfg      ProcessorConfig
	stepSlot chan struct{}
	now      func() time.Time
}

func NewProcessor(
	documents ports.DocumentRepository,
	jobs ports.JobRepository,
	contents ports.ContentRepository,
	pages ports.PageExtractor,
	extraction ports.ExtractionService,
	summarizer ports.Summarizer,
	parser ports.ResultParser,
	retrier ports.Retrier,
	failures ports.FailureRecorder,
	cfg ProcessorConfig,
) *Processor {
	cfg = cfg.normalize()
	return &Processor{
		documents:  documents,
		jobs:       jobs,
		contents:   contents,
		pages:      pages,
		extraction: extraction,
		summarizer: summarizer,
		parser:     parser,
		retrier:    retrier,
		failures:   failures,
		cfg:        cfg,
		stepSlot:   make(chan struct{}, cfg.MaxConcurrentSteps),
		now:        time.Now,
	}
}

func (p *Processor) Process(ctx context.Context, documentID, jobID string) error {
	startedAt := p.now().UTC()
	if err := p.jobs.MarkStarted(ctx, jobID, startedAt); err != nil {
		return fmt.Errorf("mark job started: %w", err)
	}
	if err := p.documents.UpdateStatus(ctx, documentID, domain.StatusProcessing); err != nil {
		return fmt.Errorf("set document status=processing: %w", err)
	}

	content, err := p.runPipeline(ctx, documentID, jobID)
	if err != nil {
		p.markFailed(ctx, documentID, jobID, err)
		return err
	}

	if err := p.jobs.Complete(ctx, jobID, p.now().UTC()); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if err := p.documents.UpdateStatus(ctx, documentID, domain.StatusCompleted); err != nil {
		return fmt.Errorf("set document status=completed: %w", err)
	}

	slog.Info("document processed",
		"document_id", documentID,
		"job_id", jobID,
		"confidence", content.Confidence,
		"duration_s", p.now().UTC().Sub(startedAt).Seconds(),
	)
	return nil
}

// stepError marks failures of the retried extraction+summarization region;
// the failure row records them under a dedicated error type together with
// the retry bound that was exhausted.
type stepError struct {
	err error
}

func (e *stepError) Error() string { return e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

func (p *Processor) runPipeline(ctx context.Context, documentID, jobID string) (*domain.ExtractedContent, error) {
	doc, err := p.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}

	if err := p.jobs.UpdateStage(ctx, jobID, domain.StagePreprocessing); err != nil {
		return nil, fmt.Errorf("set stage=preprocessing: %w", err)
	}
	pages, err := p.pages.ExtractPages(ctx, doc.StoragePath, doc.FileType)
	if err != nil {
		return nil, fmt.Errorf("extract pages: %w", err)
	}

	extraction, summaryBlob, err := p.runOrchestratedStep(ctx, jobID, doc, pages)
	if err != nil {
		return nil, &stepError{err: err}
	}

	parsed := p.parser.Parse(summaryBlob)
	content := p.mergeResult(doc.ID, extraction, parsed)
	if err := validateContent(content); err != nil {
		return nil, err
	}

	if err := p.jobs.UpdateStage(ctx, jobID, domain.StageSavingResults); err != nil {
		return nil, fmt.Errorf("set stage=saving_results: %w", err)
	}
	if err := p.saveContent(ctx, content); err != nil {
		return nil, fmt.Errorf("save extracted content: %w", err)
	}
	return content, nil
}

// runOrchestratedStep executes extraction followed by summarization as one
// retried unit. Each attempt waits for a process-wide slot and runs under its
// own deadline; the slot is held for the duration of the attempt.
func (p *Processor) runOrchestratedStep(ctx context.Context, jobID string, doc *domain.Document, pages []domain.PagePayload) (domain.Extraction, string, error) {
	var extraction domain.Extraction
	var summaryBlob string

	err := p.retrier.Execute(ctx, "extract_and_summarize", func(ctx context.Context) error {
		select {
		case p.stepSlot <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
		defer func() { <-p.stepSlot }()

		attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.StepTimeout)
		defer cancel()

		if err := p.jobs.UpdateStage(attemptCtx, jobID, domain.StageOCRExtraction); err != nil {
			return fmt.Errorf("set stage=ocr_extraction: %w", err)
		}
		result, err := p.extraction.Extract(attemptCtx, pages, doc.FileType, func(done, total int) {
			slog.Debug("extraction progress", "job_id", jobID, "done", done, "total", total)
		})
		if err != nil {
			return fmt.Errorf("extraction step: %w", err)
		}

		if err := p.jobs.UpdateStage(attemptCtx, jobID, domain.StageSummarization); err != nil {
			return fmt.Errorf("set stage=summarization: %w", err)
		}
		blob, err := p.summarizer.Summarize(attemptCtx, result.Text)
		if err != nil {
			return fmt.Errorf("summarization step: %w", err)
		}

		extraction = result
		summaryBlob = blob
		return nil
	})
	if err != nil {
		return domain.Extraction{}, "", err
	}
	return extraction, summaryBlob, nil
}

// mergeResult reconciles parser output with the extraction pass: parsed
// fields win when present, extraction fills the gaps.
func (p *Processor) mergeResult(documentID string, extraction domain.Extraction, parsed domain.ParsedResult) *domain.ExtractedContent {
	rawText := parsed.RawText
	if rawText == "" {
		rawText = extraction.Text
	}

	confidence := parsed.Confidence
	if confidence <= 0 {
		confidence = extraction.Confidence
	}
	// The parser takes the model's confidence_score at face value; enforce
	// the [0,1] range here before anything is persisted.
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	metadata := make(map[string]any, len(extraction.Metadata)+len(parsed.Metadata))
	for k, v := range extraction.Metadata {
		metadata[k] = v
	}
	for k, v := range parsed.Metadata {
		metadata[k] = v
	}

	return &domain.ExtractedContent{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		RawText:    rawText,
		Summary:    parsed.Summary,
		Confidence: confidence,
		Metadata:   metadata,
		CreatedAt:  p.now().UTC(),
	}
}

// validateContent enforces that raw text and summary are never both empty,
// deriving the missing one from the other.
func validateContent(content *domain.ExtractedContent) error {
	switch {
	case content.RawText == "" && content.Summary == "":
		return domain.WrapError(domain.ErrNoContent, "validate content", errors.New("no content extracted"))
	case content.RawText == "":
		content.RawText = truncate(content.Summary, 1000)
	case content.Summary == "":
		content.Summary = truncate(content.RawText, 500) + "..."
	}
	return nil
}

// truncate counts characters, not bytes, so a multi-byte rune is never
// split at the cut point.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// saveContent retries persistence once before giving up.
func (p *Processor) saveContent(ctx context.Context, content *domain.ExtractedContent) error {
	err := p.contents.Save(ctx, content)
	if err == nil {
		return nil
	}
	slog.Warn("content save failed, retrying once", "document_id", content.DocumentID, "error", err)
	if retryErr := p.contents.Save(ctx, content); retryErr != nil {
		return retryErr
	}
	return nil
}

func (p *Processor) markFailed(ctx context.Context, documentID, jobID string, cause error) {
	errType := domain.ErrorType(cause)
	retryCount := 0

	var step *stepError
	if errors.As(cause, &step) {
		errType = orchestrationErrorType
		retryCount = p.cfg.MaxRetries
	}

	if err := p.jobs.Fail(ctx, jobID, cause.Error(), retryCount, p.now().UTC()); err != nil {
		slog.Warn("mark job failed, retrying against a re-read row", "job_id", jobID, "error", err)
		if _, readErr := p.jobs.GetByID(ctx, jobID); readErr != nil {
			slog.Error("re-read job before retry", "job_id", jobID, "error", readErr)
		}
		if retryErr := p.jobs.Fail(ctx, jobID, cause.Error(), retryCount, p.now().UTC()); retryErr != nil {
			slog.Error("mark job failed", "job_id", jobID, "error", retryErr)
		}
	}
	if err := p.documents.UpdateStatus(ctx, documentID, domain.StatusFailed); err != nil {
		slog.Error("mark document failed", "document_id", documentID, "error", err)
	}
	p.failures.Record(ctx, jobID, documentID, cause.Error(), errType, retryCount)
}
