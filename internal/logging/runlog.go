package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-run
// LogRun writes an entry to the run_log table.
func LogRun(db *sql.DB, entry RunLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var seed interface{}
	if entry.SeedValue != nil {
		seed = *entry.SeedValue
	}

	_, err := db.Exec(
		`INSERT INTO run_log (run_id, check_name, mode, seed_source, seed_value, gate_action, reason, report_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.Check,
		entry.Mode,
		nullIfEmpty(entry.SeedSource),
		seed,
		nullIfEmpty(entry.GateAction),
		nullIfEmpty(entry.Reason),
		nullIfEmpty(entry.ReportJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log run: %w", err)
	}
	return nil
}

// #endregion log-run

// #region read-report
// ReportJSON returns the stored report of a run, or "" if none was logged.
func ReportJSON(db *sql.DB, runID string) (string, error) {
	var report sql.NullString
	err := db.QueryRow(
		`SELECT report_json FROM run_log WHERE run_id = ? ORDER BY id DESC LIMIT 1`, runID,
	).Scan(&report)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read report %s: %w", runID, err)
	}
	return report.String, nil
}

// #endregion read-report

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
