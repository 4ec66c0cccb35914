package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusPartial   RunStatus = "partial"
)

type RunType string

const (
	RunTypeAnalyze     RunType = "analyze"
	RunTypeRefresh     RunType = "refresh_catalog"
	RunTypeCorrelation RunType = "correlation"
)

// AnalysisRun is one batch invocation's bookkeeping row, kept in the
// operational SQLite store.
type AnalysisRun struct {
	ID                int64      `json:"id" db:"id"`
	RunType           RunType    `json:"run_type" db:"run_type"`
	StartedAt         time.Time  `json:"started_at" db:"started_at"`
	FinishedAt        *time.Time `json:"finished_at" db:"finished_at"`
	Status            RunStatus  `json:"status" db:"status"`
	ListingsProcessed int        `json:"listings_processed" db:"listings_processed"`
	ListingsMatched   int        `json:"listings_matched" db:"listings_matched"`
	ListingsUnmapped  int        `json:"listings_unmapped" db:"listings_unmapped"`
	ErrorsCount       int        `json:"errors_count" db:"errors_count"`
}
