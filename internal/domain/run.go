package domain

import "time"

// RunStatus is the lifecycle state of a reconciliation run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
)

// RunSummary is what a finished run records about its batch.
type RunSummary struct {
	RawRecords   int  `json:"raw_records"`
	KeptRecords  int  `json:"kept_records"`
	Duplicates   int  `json:"duplicates"`
	ReportPassed bool `json:"report_passed"`
}

// Run is one row of the runs table as seen by the operator surfaces.
type Run struct {
	RunID        string     `json:"run_id"`
	Source       string     `json:"source"`
	Status       RunStatus  `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Summary      RunSummary `json:"summary"`
}
