package preprocess

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/kirillkom/ocr-pipeline/internal/core/domain"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var mimeFormats = map[string]domain.Format{
	"image/png":       domain.FormatPNG,
	"image/jpeg":      domain.FormatJPEG,
	"image/jpg":       domain.FormatJPEG,
	"application/pdf": domain.FormatPDF,
	docxMIME:          domain.FormatDOCX,
	"image/tiff":      domain.FormatTIFF,
	"image/tif":       domain.FormatTIFF,
}

var extFormats = map[string]struct {
	format domain.Format
	mime   string
}{
	".png":  {domain.FormatPNG, "image/png"},
	".jpg":  {domain.FormatJPEG, "image/jpeg"},
	".jpeg": {domain.FormatJPEG, "image/jpeg"},
	".pdf":  {domain.FormatPDF, "application/pdf"},
	".docx": {domain.FormatDOCX, docxMIME},
	".tiff": {domain.FormatTIFF, "image/tiff"},
	".tif":  {domain.FormatTIFF, "image/tiff"},
}

// Detector resolves filenames to supported formats. MIME lookup first, file
// extension as the fallback; no I/O beyond string inspection.
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

func (d *Detector) Detect(filename string) (domain.Format, string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	if mt := mime.TypeByExtension(ext); mt != "" {
		if base, _, err := mime.ParseMediaType(mt); err == nil {
			if format, ok := mimeFormats[base]; ok {
				return format, base, nil
			}
		}
	}

	if entry, ok := extFormats[ext]; ok {
		return entry.format, entry.mime, nil
	}

	return "", "", domain.WrapError(domain.ErrUnsupportedFormat, "detect format", fmt.Errorf("file %q has no supported mime type or extension", filename))
}
