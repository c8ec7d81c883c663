package state

import (
	"time"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/continuity"
)

// #region run-record
// RunRecord is one persisted check run. Runs of the same check form a chain
// through ParentID; the chain head is the run the next prediction seeds from.
type RunRecord struct {
	RunID         string
	ParentID      string
	Check         string
	MSID          string
	LoadName      string
	Mode          continuity.Mode
	LoadStart     float64
	Start         float64
	Stop          float64
	TerminalTime  float64
	TerminalState continuity.State
	Violations    int
	Verdict       string // "pass" | "flag"
	CreatedAt     time.Time
}

// #endregion run-record
