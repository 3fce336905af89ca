package domain

import "time"

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Stage is one discrete phase of a job's processing. The empty value means
// "none": either the job has not started or it finished successfully.
type Stage string

const (
	StageNone          Stage = ""
	StagePreprocessing Stage = "preprocessing"
	StageOCRExtraction Stage = "ocr_extraction"
	StageSummarization Stage = "summarization"
	StageSavingResults Stage = "saving_results"
	StageFailed        Stage = "failed"
)

// ProcessingJob tracks one document through the pipeline. Exactly one worker
// owns stage mutation for a job at a time.
type ProcessingJob struct {
	ID           string     `json:"id"`
	DocumentID   string     `json:"document_id"`
	Status       JobStatus  `json:"status"`
	CurrentStage Stage      `json:"current_stage,omitempty"`
	RetryCount   int        `json:"retry_count"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewReviewed ReviewStatus = "reviewed"
	ReviewResolved ReviewStatus = "resolved"
)

// FailureLog is written once per terminal job failure and kept for human
// review. Only Reviewed and ReviewNotes change after creation.
type FailureLog struct {
	ID           string       `json:"id"`
	JobID        string       `json:"job_id"`
	DocumentID   string       `json:"document_id"`
	ErrorMessage string       `json:"error_message"`
	ErrorType    string       `json:"error_type,omitempty"`
	RetryCount   int          `json:"retry_count"`
	Reviewed     ReviewStatus `json:"reviewed"`
	ReviewNotes  string       `json:"review_notes,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}
