package replay

import (
	"context"
	"fmt"
	"sort"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/check"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/config"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/continuity"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/state"
)

// #region types
// Result is the outcome of replaying one load.
type Result struct {
	Load       string
	RunID      string
	Verdict    string
	Violations map[string]int
	Seed       continuity.Seed
	ParentRun  string

	// ContinuityOK is false when the seed differs from the previous load's
	// terminal value or the parent pointer skips a run.
	ContinuityOK bool
	Mismatches   []string
	Err          error
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalLoads  int
	Passed      int
	Flagged     int
	Errors      int
	Mismatches  int
	ChainBroken int
}

// #endregion types

// #region replay
// Replay runs every load through a fresh engine in prediction mode, chaining
// terminal states through an in-memory run store. The first load is seeded
// from InitialState when present.
func Replay(ctx context.Context, f *Fixture, c config.Check) ([]Result, error) {
	store, err := state.NewStore(":memory:")
	if err != nil {
		return nil, err
	}
	defer store.Close()

	pred := f.Predictor()
	engine, err := check.NewEngine(c, pred, check.Options{Store: store})
	if err != nil {
		return nil, err
	}
	seedable := c.PseudoNode != "" && pred.DeclaresComponent(c.PseudoNode)

	results := make([]Result, 0, len(f.Loads))
	var prevRunID string
	var prevTerminal continuity.State
	for i, l := range f.Loads {
		req := check.Request{
			LoadName:  l.Name,
			Mode:      continuity.ModePrediction,
			LoadStart: l.LoadStart,
			Start:     l.Start,
			Stop:      l.Stop,
			States:    l.States,
		}
		if i == 0 {
			req.Prior = f.InitialState
		}

		res := Result{Load: l.Name, ContinuityOK: true}
		rep, err := engine.Run(ctx, req)
		if err != nil {
			res.Err = err
			res.ContinuityOK = false
			results = append(results, res)
			prevRunID, prevTerminal = "", nil
			continue
		}

		res.RunID = rep.Metadata.RunID
		res.Seed = rep.Continuity.Seed
		res.ParentRun = rep.Continuity.ParentRunID
		res.Verdict = rep.Gate.Action
		res.Violations = make(map[string]int, len(rep.Records))
		for _, rec := range rep.Records {
			res.Violations[rec.Name] = len(rec.Intervals)
		}

		if seedable && prevRunID != "" {
			want, ok := prevTerminal[c.MSID]
			switch {
			case !ok:
				res.ContinuityOK = false
			case !rep.Continuity.Seeded || rep.Continuity.Seed.Value != want:
				res.ContinuityOK = false
			case rep.Continuity.ParentRunID != prevRunID:
				res.ContinuityOK = false
			}
		}

		res.Mismatches = compare(l.Expected, rep.Gate.Action, func(name string) (int, bool) {
			rec, ok := rep.Record(name)
			return len(rec.Intervals), ok
		})
		results = append(results, res)
		prevRunID = res.RunID
		prevTerminal = rep.Continuity.TerminalState
	}
	return results, nil
}

func compare(want FixtureExpected, verdict string, count func(string) (int, bool)) []string {
	var out []string
	if want.Verdict != "" && want.Verdict != verdict {
		out = append(out, fmt.Sprintf("verdict %s, want %s", verdict, want.Verdict))
	}
	names := make([]string, 0, len(want.Violations))
	for name := range want.Violations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		got, ok := count(name)
		if !ok {
			out = append(out, fmt.Sprintf("%s: no record", name))
			continue
		}
		if got != want.Violations[name] {
			out = append(out, fmt.Sprintf("%s: %d interval(s), want %d", name, got, want.Violations[name]))
		}
	}
	return out
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result) Summary {
	s := Summary{TotalLoads: len(results)}
	for _, r := range results {
		switch {
		case r.Err != nil:
			s.Errors++
		case r.Verdict == "flag":
			s.Flagged++
		default:
			s.Passed++
		}
		if len(r.Mismatches) > 0 {
			s.Mismatches++
		}
		if !r.ContinuityOK && r.Err == nil {
			s.ChainBroken++
		}
	}
	return s
}

// #endregion replay
