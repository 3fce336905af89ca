package preprocess

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"testing"

	"github.com/kirillkom/ocr-pipeline/internal/core/domain"
)

type memStorage map[string][]byte

func (m memStorage) Save(_ context.Context, key string, data io.Reader) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m[key] = b
	return nil
}

func (m memStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("no object %q", key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

type fakePDF struct {
	pages       int
	failAlways  map[int]bool
	failPrimary map[int]bool
	width       int
	height      int
	closed      bool
	renderDPIs  map[int][]float64
}

func (f *fakePDF) NumPage() int { return f.pages }

func (f *fakePDF) ImageDPI(page int, dpi float64) (image.Image, error) {
	if f.renderDPIs == nil {
		f.renderDPIs = make(map[int][]float64)
	}
	f.renderDPIs[page] = append(f.renderDPIs[page], dpi)

	if f.failAlways[page] {
		return nil, fmt.Errorf("render error on page %d", page)
	}
	if f.failPrimary[page] && len(f.renderDPIs[page]) == 1 {
		return nil, fmt.Errorf("primary render error on page %d", page)
	}

	w, h := f.width, f.height
	if w == 0 {
		w = 100
	}
	if h == 0 {
		h = 140
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.White)
	}
	return img, nil
}

func (f *fakePDF) Close() error {
	f.closed = true
	return nil
}

func newTestExtractor(store memStorage, doc *fakePDF, cfg ExtractorConfig) *Extractor {
	e := NewExtractor(store, cfg)
	e.openPDF = func([]byte) (pdfDocument, error) { return doc, nil }
	return e
}

func TestExtractPagesImagePassthrough(t *testing.T) {
	store := memStorage{"img.png": []byte{0x89, 'P', 'N', 'G'}}
	e := NewExtractor(store, ExtractorConfig{})

	pages, err := e.ExtractPages(context.Background(), "img.png", domain.FormatPNG)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 || pages[0].Text {
		t.Fatalf("expected single binary payload, got %+v", pages)
	}
	if !bytes.Equal(pages[0].Data, store["img.png"]) {
		t.Fatalf("payload should be raw file bytes")
	}
}

func TestExtractPagesPartialPDFFailure(t *testing.T) {
	store := memStorage{"doc.pdf": []byte("%PDF-1.4 fake")}
	doc := &fakePDF{pages: 3, failAlways: map[int]bool{1: true}}
	e := newTestExtractor(store, doc, ExtractorConfig{})

	pages, err := e.ExtractPages(context.Background(), "doc.pdf", domain.FormatPDF)
	if err != nil {
		t.Fatalf("partial failure must not fail preprocessing: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 surviving pages, got %d", len(pages))
	}
	if pages[0].Index != 0 || pages[1].Index != 2 {
		t.Fatalf("expected original indexes 0 and 2, got %d and %d", pages[0].Index, pages[1].Index)
	}
	// Abandoned page was tried at both resolutions.
	if got := doc.renderDPIs[1]; len(got) != 2 || got[0] != 150 || got[1] != 100 {
		t.Fatalf("expected render attempts at 150 then 100 dpi, got %v", got)
	}
	if !doc.closed {
		t.Fatalf("document handle must be released")
	}
}

func TestExtractPagesFallbackResolutionRecovers(t *testing.T) {
	store := memStorage{"doc.pdf": []byte("%PDF")}
	doc := &fakePDF{pages: 1, failPrimary: map[int]bool{0: true}}
	e := newTestExtractor(store, doc, ExtractorConfig{})

	pages, err := e.ExtractPages(context.Background(), "doc.pdf", domain.FormatPDF)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected recovered page, got %d", len(pages))
	}
}

func TestExtractPagesAllPDFPagesFail(t *testing.T) {
	store := memStorage{"doc.pdf": []byte("%PDF")}
	doc := &fakePDF{pages: 2, failAlways: map[int]bool{0: true, 1: true}}
	e := newTestExtractor(store, doc, ExtractorConfig{})

	_, err := e.ExtractPages(context.Background(), "doc.pdf", domain.FormatPDF)
	if err == nil {
		t.Fatalf("expected error when every page fails")
	}
	if !domain.IsKind(err, domain.ErrPreprocessing) {
		t.Fatalf("expected ErrPreprocessing, got %v", err)
	}
	if !doc.closed {
		t.Fatalf("document handle must be released on failure")
	}
}

func TestExtractPagesAppliesPageCap(t *testing.T) {
	store := memStorage{"big.pdf": []byte("%PDF")}
	doc := &fakePDF{pages: 60}
	e := newTestExtractor(store, doc, ExtractorConfig{MaxPDFPages: 50})

	pages, err := e.ExtractPages(context.Background(), "big.pdf", domain.FormatPDF)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 50 {
		t.Fatalf("expected 50 pages after cap, got %d", len(pages))
	}
}

func TestExtractPagesResizesOversizedRaster(t *testing.T) {
	store := memStorage{"doc.pdf": []byte("%PDF")}
	doc := &fakePDF{pages: 1, width: 5000, height: 2500}
	e := newTestExtractor(store, doc, ExtractorConfig{MaxImageDimension: 4000})

	pages, err := e.ExtractPages(context.Background(), "doc.pdf", domain.FormatPDF)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(pages[0].Data))
	if err != nil {
		t.Fatalf("payload is not a decodable jpeg: %v", err)
	}
	if cfg.Width != 4000 || cfg.Height != 2000 {
		t.Fatalf("expected 4000x2000 after aspect-preserving resize, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestExtractPagesRejectsGarbageDOCX(t *testing.T) {
	store := memStorage{"broken.docx": []byte("not a zip archive")}
	e := NewExtractor(store, ExtractorConfig{})

	_, err := e.ExtractPages(context.Background(), "broken.docx", domain.FormatDOCX)
	if err == nil {
		t.Fatalf("expected error for malformed docx")
	}
	if !domain.IsKind(err, domain.ErrPreprocessing) {
		t.Fatalf("expected ErrPreprocessing, got %v", err)
	}
}

func TestExtractPagesMissingObject(t *testing.T) {
	e := NewExtractor(memStorage{}, ExtractorConfig{})

	_, err := e.ExtractPages(context.Background(), "ghost.png", domain.FormatPNG)
	if err == nil {
		t.Fatalf("expected error for missing object")
	}
	if !domain.IsKind(err, domain.ErrPreprocessing) {
		t.Fatalf("expected ErrPreprocessing, got %v", err)
	}
}
