package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/ocr-pipeline/internal/core/domain"
	"github.com/kirillkom/ocr-pipeline/internal/core/ports"
)

// pageBreak joins per-page texts in original page order.
const pageBreak = "\n\n--- Page Break ---\n\n"

// PageRecognizer submits one page raster to the remote text-recognition
// capability.
type PageRecognizer interface {
	RecognizePage(ctx context.Context, image []byte) (string, error)
}

// Service produces combined text, mean confidence and run metadata from an
// ordered page sequence. Remote calls run on a bounded per-job worker pool;
// page order of the combined text never depends on completion order.
type Service struct {
	recognizer PageRecognizer
	scorer     *ConfidenceScorer
	model      string
	maxWorkers int
}

func NewService(recognizer PageRecognizer, scorer *ConfidenceScorer, model string, maxWorkers int) *Service {
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	return &Service{
		recognizer: recognizer,
		scorer:     scorer,
		model:      model,
		maxWorkers: maxWorkers,
	}
}

func (s *Service) Extract(ctx context.Context, pages []domain.PagePayload, format domain.Format, progress ports.ProgressFunc) (domain.Extraction, error) {
	var texts []string
	var confidences []float64
	failed := 0

	if format == domain.FormatDOCX {
		texts, confidences = s.extractText(pages)
	} else {
		texts, confidences, failed = s.recognizePages(ctx, pages, progress)
	}

	combined := strings.Join(texts, pageBreak)

	avg := 0.0
	if len(confidences) > 0 {
		sum := 0.0
		for _, c := range confidences {
			sum += c
		}
		avg = sum / float64(len(confidences))
	}

	method := "image_ocr"
	switch format {
	case domain.FormatPDF:
		method = "pdf_to_image_ocr"
	case domain.FormatDOCX:
		method = "direct_text"
	}

	return domain.Extraction{
		Text:       combined,
		Confidence: avg,
		Metadata: map[string]any{
			"model":             s.model,
			"file_type":         string(format),
			"page_count":        len(pages),
			"pages_failed":      failed,
			"text_length":       len(combined),
			"word_count":        len(strings.Fields(combined)),
			"page_confidences":  confidences,
			"processing_method": method,
		},
	}, nil
}

// extractText handles pre-extracted text payloads: no remote call, local
// confidence only.
func (s *Service) extractText(pages []domain.PagePayload) ([]string, []float64) {
	texts := make([]string, 0, len(pages))
	confidences := make([]float64, 0, len(pages))
	for _, page := range pages {
		text := string(page.Data)
		texts = append(texts, text)
		confidences = append(confidences, s.scorer.Score(text))
	}
	return texts, confidences
}

func (s *Service) recognizePages(ctx context.Context, pages []domain.PagePayload, progress ports.ProgressFunc) ([]string, []float64, int) {
	total := len(pages)
	texts := make([]string, total)
	confidences := make([]float64, total)

	workers := s.maxWorkers
	if total < workers {
		workers = total
	}

	var mu sync.Mutex
	done := 0
	failed := 0

	var group errgroup.Group
	group.SetLimit(workers)
	for slot, page := range pages {
		group.Go(func() error {
			text, err := s.recognizer.RecognizePage(ctx, page.Data)
			if err != nil {
				// Failed pages become inline placeholders; one bad page
				// never aborts the batch.
				slog.Warn("page recognition failed", "page", page.Index+1, "error", err)
				texts[slot] = fmt.Sprintf("[Error extracting text from page %d: %v]", page.Index+1, err)
				confidences[slot] = 0.0
				mu.Lock()
				failed++
				mu.Unlock()
			} else {
				texts[slot] = text
				confidences[slot] = s.scorer.Score(text)
			}

			mu.Lock()
			done++
			current := done
			mu.Unlock()
			if progress != nil {
				progress(current, total)
			}
			return nil
		})
	}
	_ = group.Wait()

	return texts, confidences, failed
}
