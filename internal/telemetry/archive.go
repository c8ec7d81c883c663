package telemetry

import (
	"context"
	"math"
	"sync"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/checkerr"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/series"
)

// #region archive
// Archive is an in-memory telemetry Source keyed by MSID. Channel names are
// matched exactly.
type Archive struct {
	mu     sync.RWMutex
	data   map[string]series.Series
	maxGap float64
}

// NewArchive creates an archive whose lookups tolerate at most maxGap
// seconds between the requested time and the nearest sample.
func NewArchive(maxGap float64, data ...series.Series) *Archive {
	a := &Archive{data: make(map[string]series.Series, len(data)), maxGap: maxGap}
	for _, s := range data {
		a.data[s.Name] = s
	}
	return a
}

// Add stores or replaces a channel.
func (a *Archive) Add(s series.Series) error {
	if err := s.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	a.data[s.Name] = s
	a.mu.Unlock()
	return nil
}

func (a *Archive) get(channel string, t float64) (series.Series, error) {
	a.mu.RLock()
	s, ok := a.data[channel]
	a.mu.RUnlock()
	if !ok {
		return series.Series{}, checkerr.Unavailablef(channel, t, "no telemetry archived")
	}
	return s, nil
}

// Lookup returns the sample nearest to t.
func (a *Archive) Lookup(_ context.Context, channel string, t float64) (float64, error) {
	s, err := a.get(channel, t)
	if err != nil {
		return 0, err
	}
	return s.Nearest(t, a.maxGap)
}

// Series returns the archived samples within [start, stop].
func (a *Archive) Series(_ context.Context, msid string, start, stop float64) (series.Series, error) {
	s, err := a.get(msid, start)
	if err != nil {
		return series.Series{}, err
	}
	w := s.Window(start, stop)
	if w.Len() == 0 {
		return series.Series{}, checkerr.Unavailablef(msid, start, "no samples in [%.1f, %.1f]", start, stop)
	}
	return w, nil
}

// End returns the time of the newest sample of msid, or NaN if none.
func (a *Archive) End(_ context.Context, msid string) float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, _, err := a.data[msid].Last()
	if err != nil {
		return math.NaN()
	}
	return t
}

// #endregion archive
