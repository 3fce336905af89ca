package domain

import "time"

type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

type Format string

const (
	FormatPNG  Format = "PNG"
	FormatJPEG Format = "JPEG"
	FormatPDF  Format = "PDF"
	FormatDOCX Format = "DOCX"
	FormatTIFF Format = "TIFF"
)

type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	StoragePath string         `json:"storage_path"`
	FileType    Format         `json:"file_type"`
	FileSize    int64          `json:"file_size"`
	Status      DocumentStatus `json:"status"`
	UploadedAt  time.Time      `json:"uploaded_at"`
}

// PagePayload is the unit of input handed to the extraction capability:
// raster bytes for images and rendered PDF pages, pre-extracted UTF-8 text
// for DOCX. Text payloads bypass the remote vision call downstream.
type PagePayload struct {
	Index int
	Data  []byte
	Text  bool
}

// ExtractedContent is the terminal result of a successful job. At most one
// row exists per document; RawText and Summary are never both empty.
type ExtractedContent struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	RawText    string         `json:"raw_text"`
	Summary    string         `json:"summary"`
	Confidence float64        `json:"confidence_score"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
