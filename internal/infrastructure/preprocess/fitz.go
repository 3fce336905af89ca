package preprocess

import (
	"image"

	"github.com/gen2brain/go-fitz"
)

// fitzDocument adapts the MuPDF handle to the renderer abstraction.
type fitzDocument struct {
	doc *fitz.Document
}

func openFitzDocument(data []byte) (pdfDocument, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	return fitzDocument{doc: doc}, nil
}

func (f fitzDocument) NumPage() int {
	return f.doc.NumPage()
}

func (f fitzDocument) ImageDPI(page int, dpi float64) (image.Image, error) {
	return f.doc.ImageDPI(page, dpi)
}

func (f fitzDocument) Close() error {
	return f.doc.Close()
}
