package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/ocr-pipeline/internal/core/domain"
)

type recognizerFake struct {
	mu      sync.Mutex
	calls   int
	delay   func(image []byte) time.Duration
	failOn  map[string]error
	results map[string]string
}

func (f *recognizerFake) RecognizePage(_ context.Context, image []byte) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.delay != nil {
		time.Sleep(f.delay(image))
	}
	key := string(image)
	if err, ok := f.failOn[key]; ok {
		return "", err
	}
	if text, ok := f.results[key]; ok {
		return text, nil
	}
	return "text for " + key, nil
}

func pagesFromStrings(items ...string) []domain.PagePayload {
	pages := make([]domain.PagePayload, len(items))
	for i, s := range items {
		pages[i] = domain.PagePayload{Index: i, Data: []byte(s)}
	}
	return pages
}

func TestExtractPreservesPageOrderUnderShuffledCompletion(t *testing.T) {
	// Earlier pages finish last; the combined text must still follow
	// original page order.
	rec := &recognizerFake{
		delay: func(image []byte) time.Duration {
			switch string(image) {
			case "p0":
				return 30 * time.Millisecond
			case "p1":
				return 15 * time.Millisecond
			default:
				return 0
			}
		},
		results: map[string]string{"p0": "first", "p1": "second", "p2": "third"},
	}
	svc := NewService(rec, NewConfidenceScorer(), "gpt-4o", 8)

	result, err := svc.Extract(context.Background(), pagesFromStrings("p0", "p1", "p2"), domain.FormatPDF, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := strings.Join([]string{"first", "second", "third"}, pageBreak)
	if result.Text != want {
		t.Fatalf("combined text out of order:\n got %q\nwant %q", result.Text, want)
	}
}

func TestExtractFailedPageBecomesPlaceholder(t *testing.T) {
	rec := &recognizerFake{
		failOn:  map[string]error{"p1": errors.New("vision unavailable")},
		results: map[string]string{"p0": "Alpha text.", "p2": "Gamma text."},
	}
	svc := NewService(rec, NewConfidenceScorer(), "gpt-4o", 8)

	result, err := svc.Extract(context.Background(), pagesFromStrings("p0", "p1", "p2"), domain.FormatPDF, nil)
	if err != nil {
		t.Fatalf("per-page failure must not abort the batch: %v", err)
	}
	parts := strings.Split(result.Text, pageBreak)
	if len(parts) != 3 {
		t.Fatalf("expected 3 page slots, got %d", len(parts))
	}
	if !strings.HasPrefix(parts[1], "[Error extracting text from page 2:") {
		t.Fatalf("expected inline placeholder for failed page, got %q", parts[1])
	}

	confs := result.Metadata["page_confidences"].([]float64)
	if confs[1] != 0.0 {
		t.Fatalf("failed page must contribute 0.0 confidence, got %v", confs[1])
	}
	if got := result.Metadata["pages_failed"]; got != 1 {
		t.Fatalf("expected pages_failed=1, got %v", got)
	}
	if confs[0] <= 0 || confs[2] <= 0 {
		t.Fatalf("successful pages must score above zero, got %v", confs)
	}
	wantAvg := (confs[0] + confs[1] + confs[2]) / 3
	if result.Confidence != wantAvg {
		t.Fatalf("confidence %v is not the arithmetic mean %v", result.Confidence, wantAvg)
	}
}

func TestExtractProgressFiresForEveryPage(t *testing.T) {
	rec := &recognizerFake{
		failOn: map[string]error{"p2": errors.New("boom")},
	}
	svc := NewService(rec, NewConfidenceScorer(), "gpt-4o", 2)

	var mu sync.Mutex
	var dones []int
	totals := map[int]bool{}
	progress := func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		dones = append(dones, done)
		totals[total] = true
	}

	_, err := svc.Extract(context.Background(), pagesFromStrings("p0", "p1", "p2", "p3"), domain.FormatPDF, progress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dones) != 4 {
		t.Fatalf("expected 4 progress calls (success or failure), got %d", len(dones))
	}
	if len(totals) != 1 || !totals[4] {
		t.Fatalf("expected constant total 4, got %v", totals)
	}
	seen := map[int]bool{}
	for _, d := range dones {
		seen[d] = true
	}
	for i := 1; i <= 4; i++ {
		if !seen[i] {
			t.Fatalf("expected done counter to hit %d exactly once, got %v", i, dones)
		}
	}
}

func TestExtractDOCXBypassesRemoteCall(t *testing.T) {
	rec := &recognizerFake{}
	svc := NewService(rec, NewConfidenceScorer(), "gpt-4o", 8)

	pages := []domain.PagePayload{{Index: 0, Data: []byte("Paragraph one.\nParagraph two."), Text: true}}
	result, err := svc.Extract(context.Background(), pages, domain.FormatDOCX, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.calls != 0 {
		t.Fatalf("DOCX must not reach the recognizer, got %d calls", rec.calls)
	}
	if result.Text != "Paragraph one.\nParagraph two." {
		t.Fatalf("unexpected combined text %q", result.Text)
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		t.Fatalf("expected local heuristic confidence in (0,1], got %v", result.Confidence)
	}
	if result.Metadata["processing_method"] != "direct_text" {
		t.Fatalf("unexpected processing method %v", result.Metadata["processing_method"])
	}
}

func TestExtractNoPages(t *testing.T) {
	svc := NewService(&recognizerFake{}, NewConfidenceScorer(), "gpt-4o", 8)

	result, err := svc.Extract(context.Background(), nil, domain.FormatPDF, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != 0.0 {
		t.Fatalf("expected 0.0 confidence with no pages, got %v", result.Confidence)
	}
	if result.Text != "" {
		t.Fatalf("expected empty text, got %q", result.Text)
	}
}

func TestExtractManyPagesCompleteAgainstBoundedPool(t *testing.T) {
	items := make([]string, 20)
	for i := range items {
		items[i] = fmt.Sprintf("p%02d", i)
	}
	rec := &recognizerFake{}
	svc := NewService(rec, NewConfidenceScorer(), "gpt-4o", 8)

	result, err := svc.Extract(context.Background(), pagesFromStrings(items...), domain.FormatPNG, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.calls != 20 {
		t.Fatalf("expected 20 recognitions, got %d", rec.calls)
	}
	if got := len(strings.Split(result.Text, pageBreak)); got != 20 {
		t.Fatalf("expected 20 page slots, got %d", got)
	}
}
