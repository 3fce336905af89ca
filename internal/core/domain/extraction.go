package domain

// Extraction is what the extraction service produces from an ordered page
// sequence: page texts joined in original page order, the arithmetic mean of
// the per-page confidence scores, and opaque run metadata.
type Extraction struct {
	Text       string
	Confidence float64
	Metadata   map[string]any
}

// ParsedResult is the structured form recovered from the opaque output of
// the combined extraction+summarization step.
type ParsedResult struct {
	RawText    string
	Summary    string
	Confidence float64
	Metadata   map[string]any
}

// ProcessRequest is the unit of work dispatched to pipeline workers.
type ProcessRequest struct {
	DocumentID string `json:"document_id"`
	JobID      string `json:"job_id"`
}
