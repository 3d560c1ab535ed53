package job

import "verifront/internal/core/record"

// Job tracks one extraction run end to end.
type Job struct {
	JobID   string      `json:"job_id"`
	Status  Status      `json:"status"`
	Summary *RunSummary `json:"summary,omitempty"`
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// EntityResult is the queryable per-entity outcome, including the per-field
// diagnostics that would otherwise only exist as log lines.
type EntityResult struct {
	EntityID          string           `json:"entity_id"`
	Name              string           `json:"name"`
	FieldsExtracted   int              `json:"fields_extracted"`
	ExtractionSuccess bool             `json:"extraction_success"`
	ArtifactPath      string           `json:"artifact_path,omitempty"`
	Error             string           `json:"error,omitempty"`
	Outcomes          []record.Outcome `json:"outcomes,omitempty"`
}

// RunSummary accumulates results in entity source order.
type RunSummary struct {
	JobsFile  string         `json:"jobs_file"`
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Error     string         `json:"error,omitempty"`
	Entities  []EntityResult `json:"entities"`
}
