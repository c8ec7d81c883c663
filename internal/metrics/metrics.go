package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// #region recorder
// Recorder counts check runs and violations on its own registry so several
// engines (and tests) never collide on the default one.
type Recorder struct {
	registry *prometheus.Registry

	runs       *prometheus.CounterVec
	violations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewRecorder registers the thermcheck collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thermcheck",
			Name:      "runs_total",
			Help:      "Check runs by check, mode and outcome.",
		}, []string{"check", "mode", "outcome"}),
		violations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thermcheck",
			Name:      "violation_intervals_total",
			Help:      "Violation intervals found per limit.",
		}, []string{"check", "limit"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "thermcheck",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a check run.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"check"}),
	}
}

// Registry exposes the collectors for a /metrics handler or a push.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveRun records one finished run. outcome is "pass", "flag" or "error".
func (r *Recorder) ObserveRun(check, mode, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(check, mode, outcome).Inc()
	r.duration.WithLabelValues(check).Observe(elapsed.Seconds())
}

// ObserveViolations adds n intervals for a limit.
func (r *Recorder) ObserveViolations(check, limit string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.violations.WithLabelValues(check, limit).Add(float64(n))
}

// WriteTextfile writes the current values in the text exposition format
// to path, for a node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}

// #endregion recorder
