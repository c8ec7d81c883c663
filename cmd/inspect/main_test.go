package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/continuity"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/state"
)

func seededStore(t *testing.T) (*state.Store, []state.RunRecord) {
	t.Helper()
	store, err := state.NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	var runs []state.RunRecord
	for i, load := range []string{"JAN0126A", "JAN0826A"} {
		rec, err := store.NewRun("dpa")
		require.NoError(t, err)
		rec.MSID = "1dpamzt"
		rec.LoadName = load
		rec.Mode = continuity.ModePrediction
		rec.Start = float64(i * 1000)
		rec.Stop = float64((i + 1) * 1000)
		rec.TerminalTime = rec.Stop
		rec.TerminalState = continuity.State{"1dpamzt": 20 + float64(i), "dpa0": 21}
		rec.Verdict = "pass"
		require.NoError(t, store.CommitRun(rec))
		runs = append(runs, rec)
	}
	return store, runs
}

func TestRunList(t *testing.T) {
	store, runs := seededStore(t)
	runsLast = 10

	var buf bytes.Buffer
	require.NoError(t, runList(store, &buf, nil))
	out := buf.String()
	assert.Contains(t, out, "JAN0826A")
	assert.Contains(t, out, short(runs[0].RunID))
	assert.Contains(t, out, "21.00")
}

func TestRunShowAndChain(t *testing.T) {
	store, runs := seededStore(t)

	var buf bytes.Buffer
	require.NoError(t, runShow(store, &buf, []string{runs[1].RunID}))
	assert.Contains(t, buf.String(), "parent:   "+runs[0].RunID)
	assert.Contains(t, buf.String(), "dpa0")

	buf.Reset()
	require.NoError(t, runChain(store, &buf, []string{runs[1].RunID}))
	assert.Contains(t, buf.String(), "JAN0126A")

	showReport = true
	defer func() { showReport = false }()
	assert.Error(t, runShow(store, &buf, []string{runs[1].RunID}), "no report logged")
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "-", orDash(""))
	assert.Equal(t, "abc", short("abc"))
	assert.Equal(t, []string{"a", "b"}, sortedKeys(map[string]float64{"b": 1, "a": 2}))
}
