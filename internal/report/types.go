package report

import (
	"time"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/continuity"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/eval"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/gate"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/violation"
)

// #region metadata
// Metadata identifies the run a report belongs to.
type Metadata struct {
	RunID     string            `json:"run_id"`
	Check     string            `json:"check"`
	MSID      string            `json:"msid"`
	LoadName  string            `json:"load_name"`
	Mode      continuity.Mode   `json:"mode"`
	LoadStart float64           `json:"load_start"`
	Start     float64           `json:"start"`
	Stop      float64           `json:"stop"`
	CreatedAt time.Time         `json:"created_at"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// #endregion metadata

// #region continuity
// Continuity links this run to its neighbours in the load chain.
type Continuity struct {
	PseudoNode    string           `json:"pseudo_node,omitempty"`
	Seeded        bool             `json:"seeded"`
	Seed          continuity.Seed  `json:"seed"`
	ParentRunID   string           `json:"parent_run_id,omitempty"`
	TerminalTime  float64          `json:"terminal_time"`
	TerminalState continuity.State `json:"terminal_state"`
}

// #endregion continuity

// #region limit-line
// LimitLine is what a renderer needs to overlay one limit on a plot.
type LimitLine struct {
	Name      string  `json:"name"`
	Label     string  `json:"label"`
	Value     float64 `json:"value"`
	Color     string  `json:"color,omitempty"`
	LineStyle string  `json:"linestyle,omitempty"`
}

// #endregion limit-line

// #region report
// Report is the immutable product of one check run.
type Report struct {
	Metadata   Metadata           `json:"metadata"`
	Records    []violation.Record `json:"violations"`
	Continuity Continuity         `json:"continuity"`
	LimitLines []LimitLine        `json:"limit_lines"`
	Validation *eval.EvalResult   `json:"validation,omitempty"`
	Gate       *gate.GateDecision `json:"gate,omitempty"`

	aliases map[string]string
}

// #endregion report
