package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRun(t *testing.T) {
	r := NewRecorder()
	r.ObserveRun("dpa", "prediction", "pass", 2*time.Second)
	r.ObserveRun("dpa", "prediction", "pass", time.Second)
	r.ObserveRun("dpa", "validation", "flag", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.runs.WithLabelValues("dpa", "prediction", "pass")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("dpa", "validation", "flag")))

	n, err := testutil.GatherAndCount(r.Registry(), "thermcheck_run_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestObserveViolations(t *testing.T) {
	r := NewRecorder()
	r.ObserveViolations("dpa", "planning.warning.high", 2)
	r.ObserveViolations("dpa", "planning.warning.high", 0)
	r.ObserveViolations("dpa", "zero_feps", 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.violations.WithLabelValues("dpa", "planning.warning.high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.violations.WithLabelValues("dpa", "zero_feps")))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveRun("cea", "prediction", "pass", time.Second)
	path := filepath.Join(t.TempDir(), "thermcheck.prom")

	require.NoError(t, r.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `thermcheck_runs_total{check="cea",mode="prediction",outcome="pass"} 1`)

	assert.Error(t, r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom")))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveRun("dpa", "prediction", "pass", time.Second)
		r.ObserveViolations("dpa", "x", 3)
	})
	assert.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}
