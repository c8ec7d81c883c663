package logging

import "time"

// #region run-log-entry
// RunLogEntry is a single row in the run_log table.
type RunLogEntry struct {
	RunID      string
	Check      string
	Mode       string // "prediction" | "validation"
	SeedSource string // "none" | "prior_run" | "telemetry"
	SeedValue  *float64
	GateAction string // "pass" | "flag"
	Reason     string
	ReportJSON string
	CreatedAt  time.Time
}

// #endregion run-log-entry
