package telemetry

import (
	"context"
	"time"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/series"
)

// #region epoch
// Epoch is the zero of mission elapsed time (CXC seconds).
var Epoch = time.Date(1998, 1, 1, 0, 0, 0, 0, time.UTC)

// ToTime converts CXC seconds to wall-clock UTC.
func ToTime(cxc float64) time.Time {
	return Epoch.Add(time.Duration(cxc * float64(time.Second)))
}

// FromTime converts wall-clock time to CXC seconds.
func FromTime(t time.Time) float64 {
	return t.Sub(Epoch).Seconds()
}

// #endregion epoch

// #region source
// Source reads sampled telemetry by MSID. Implementations report missing or
// too-sparse data as checkerr.DataUnavailableError.
type Source interface {
	// Lookup returns the sample of channel nearest to t.
	Lookup(ctx context.Context, channel string, t float64) (float64, error)
	// Series returns the samples of msid within [start, stop].
	Series(ctx context.Context, msid string, start, stop float64) (series.Series, error)
}

// Coverage is implemented by sources that know their newest sample. End
// returns NaN when msid has no data or the source cannot be reached.
type Coverage interface {
	End(ctx context.Context, msid string) float64
}

// #endregion source

// #region config
// Config holds InfluxDB connection settings.
type Config struct {
	URL         string  `yaml:"url" json:"url"`
	Token       string  `yaml:"token" json:"token"`
	Org         string  `yaml:"org" json:"org"`
	Bucket      string  `yaml:"bucket" json:"bucket"`
	Measurement string  `yaml:"measurement" json:"measurement"`
	MaxGap      float64 `yaml:"max_gap" json:"max_gap"` // seconds; 0 disables the bound
}

// DefaultConfig returns settings for a local InfluxDB.
func DefaultConfig() Config {
	return Config{
		URL:         "http://localhost:8086",
		Org:         "thermal",
		Bucket:      "telemetry",
		Measurement: "msid",
		MaxGap:      328,
	}
}

// #endregion config
