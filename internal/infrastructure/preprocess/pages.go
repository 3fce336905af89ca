package preprocess

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"strings"

	"code.sajari.com/docconv/v2"
	xdraw "golang.org/x/image/draw"

	"github.com/kirillkom/ocr-pipeline/internal/core/domain"
	"github.com/kirillkom/ocr-pipeline/internal/core/ports"
)

// pdfDocument abstracts the native renderer handle so the rendering policy
// can be exercised without MuPDF.
type pdfDocument interface {
	NumPage() int
	ImageDPI(page int, dpi float64) (image.Image, error)
	Close() error
}

type pdfOpener func(data []byte) (pdfDocument, error)

type ExtractorConfig struct {
	MaxPDFPages       int
	RenderDPI         float64
	FallbackDPI       float64
	MaxImageDimension int
	JPEGQuality       int
}

func (c ExtractorConfig) normalize() ExtractorConfig {
	out := c
	if out.MaxPDFPages <= 0 {
		out.MaxPDFPages = 50
	}
	if out.RenderDPI <= 0 {
		out.RenderDPI = 150
	}
	if out.FallbackDPI <= 0 {
		out.FallbackDPI = 100
	}
	if out.MaxImageDimension <= 0 {
		out.MaxImageDimension = 4000
	}
	if out.JPEGQuality <= 0 {
		out.JPEGQuality = 85
	}
	return out
}

// Extractor turns a stored file into the ordered page-payload sequence the
// extraction service consumes.
type Extractor struct {
	storage ports.ObjectStorage
	cfg     ExtractorConfig
	openPDF pdfOpener
}

func NewExtractor(storage ports.ObjectStorage, cfg ExtractorConfig) *Extractor {
	return &Extractor{
		storage: storage,
		cfg:     cfg.normalize(),
		openPDF: openFitzDocument,
	}
}

func (e *Extractor) ExtractPages(ctx context.Context, storagePath string, format domain.Format) ([]domain.PagePayload, error) {
	data, err := e.readObject(ctx, storagePath)
	if err != nil {
		return nil, domain.WrapError(domain.ErrPreprocessing, "read source document", err)
	}

	switch format {
	case domain.FormatPNG, domain.FormatJPEG, domain.FormatTIFF:
		return []domain.PagePayload{{Index: 0, Data: data}}, nil
	case domain.FormatPDF:
		return e.renderPDF(ctx, data)
	case domain.FormatDOCX:
		return e.extractDOCX(data)
	default:
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "extract pages", fmt.Errorf("format %q", format))
	}
}

func (e *Extractor) readObject(ctx context.Context, key string) ([]byte, error) {
	reader, err := e.storage.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

func (e *Extractor) extractDOCX(data []byte) ([]domain.PagePayload, error) {
	text, _, err := docconv.ConvertDocx(bytes.NewReader(data))
	if err != nil {
		return nil, domain.WrapError(domain.ErrPreprocessing, "extract docx text", err)
	}
	return []domain.PagePayload{{Index: 0, Data: []byte(text), Text: true}}, nil
}

func (e *Extractor) renderPDF(ctx context.Context, data []byte) ([]domain.PagePayload, error) {
	doc, err := e.openPDF(data)
	if err != nil {
		return nil, domain.WrapError(domain.ErrPreprocessing, "open pdf", err)
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			slog.Warn("close pdf document", "error", cerr)
		}
	}()

	pageCount := doc.NumPage()
	if pageCount > e.cfg.MaxPDFPages {
		slog.Warn("pdf exceeds page cap, dropping excess pages",
			"pages", pageCount, "cap", e.cfg.MaxPDFPages)
		pageCount = e.cfg.MaxPDFPages
	}

	// MuPDF handles are not safe for concurrent use: pages render strictly
	// sequentially. Parallelism belongs to the network-bound extraction step.
	payloads := make([]domain.PagePayload, 0, pageCount)
	var failures []string
	for i := 0; i < pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, domain.WrapError(domain.ErrPreprocessing, "render pdf", err)
		}

		img, err := e.renderPage(doc, i)
		if err != nil {
			failures = append(failures, fmt.Sprintf("page %d: %v", i+1, err))
			slog.Warn("pdf page abandoned", "page", i+1, "error", err)
			continue
		}

		encoded, err := e.encodePage(img)
		if err != nil {
			failures = append(failures, fmt.Sprintf("page %d: %v", i+1, err))
			slog.Warn("pdf page encode failed", "page", i+1, "error", err)
			continue
		}
		payloads = append(payloads, domain.PagePayload{Index: i, Data: encoded})
	}

	if len(payloads) == 0 {
		return nil, domain.WrapError(domain.ErrPreprocessing, "render pdf",
			fmt.Errorf("no pages rendered: %s", strings.Join(truncateList(failures, 3), "; ")))
	}
	if len(failures) > 0 {
		slog.Warn("pdf rendered partially",
			"rendered", len(payloads), "failed", len(failures), "errors", truncateList(failures, 3))
	}
	return payloads, nil
}

// renderPage tries the primary resolution and falls back once to a lower one
// before the page is abandoned.
func (e *Extractor) renderPage(doc pdfDocument, page int) (image.Image, error) {
	img, err := doc.ImageDPI(page, e.cfg.RenderDPI)
	if err == nil {
		return img, nil
	}
	slog.Warn("primary render failed, retrying at fallback resolution",
		"page", page+1, "dpi", e.cfg.FallbackDPI, "error", err)

	img, fbErr := doc.ImageDPI(page, e.cfg.FallbackDPI)
	if fbErr != nil {
		return nil, fmt.Errorf("render at %.0f and %.0f dpi: %w", e.cfg.RenderDPI, e.cfg.FallbackDPI, fbErr)
	}
	return img, nil
}

func (e *Extractor) encodePage(img image.Image) ([]byte, error) {
	img = e.clampDimensions(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.cfg.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// clampDimensions resizes aspect-preserving when either dimension exceeds
// the configured maximum.
func (e *Extractor) clampDimensions(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	maxDim := e.cfg.MaxImageDimension
	if w <= maxDim && h <= maxDim {
		return img
	}

	var nw, nh int
	if w > h {
		nw = maxDim
		nh = h * maxDim / w
	} else {
		nh = maxDim
		nw = w * maxDim / h
	}
	slog.Info("resizing oversized page raster", "from_w", w, "from_h", h, "to_w", nw, "to_h", nh)

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}

func truncateList(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
