package telemetry

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/query"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/checkerr"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/series"
)

// #region influx
// Influx reads MSID samples stored as one measurement with an "msid" tag
// and a "value" field.
type Influx struct {
	client influxdb2.Client
	query  QueryFunc
	cfg    Config
	logger *zap.Logger
}

// QueryFunc runs a Flux query and returns its records.
type QueryFunc func(ctx context.Context, flux string) (ResultSet, error)

// ResultSet is the record stream of one query. *api.QueryTableResult
// satisfies it.
type ResultSet interface {
	recordIterator
	Close() error
}

// NewInflux opens a client for cfg. Close releases it.
func NewInflux(cfg Config, logger *zap.Logger) (*Influx, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, checkerr.Configf("telemetry", "influx url, org and bucket are required")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	in := NewInfluxWithQuery(cfg, logger, apiQuery(client.QueryAPI(cfg.Org)))
	in.client = client
	return in, nil
}

// NewInfluxWithQuery builds a source over an existing query function.
// Close is a no-op for it.
func NewInfluxWithQuery(cfg Config, logger *zap.Logger, q QueryFunc) *Influx {
	if cfg.Measurement == "" {
		cfg.Measurement = DefaultConfig().Measurement
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Influx{query: q, cfg: cfg, logger: logger}
}

func apiQuery(qa api.QueryAPI) QueryFunc {
	return func(ctx context.Context, flux string) (ResultSet, error) {
		res, err := qa.Query(ctx, flux)
		if err != nil {
			return nil, err
		}
		return res, nil
	}
}

// Close shuts down the client.
func (in *Influx) Close() {
	if in.client != nil {
		in.client.Close()
	}
}

// Series fetches msid samples within [start, stop].
func (in *Influx) Series(ctx context.Context, msid string, start, stop float64) (series.Series, error) {
	flux := BuildQuery(in.cfg.Bucket, in.cfg.Measurement, msid, start, stop)
	in.logger.Debug("querying telemetry",
		zap.String("msid", msid),
		zap.Float64("start", start),
		zap.Float64("stop", stop))

	result, err := in.query(ctx, flux)
	if err != nil {
		return series.Series{}, checkerr.Unavailablef(msid, start, "influx query: %v", err)
	}
	defer result.Close()

	s, err := readSeries(msid, result)
	if err != nil {
		return series.Series{}, err
	}
	if s.Len() == 0 {
		return series.Series{}, checkerr.Unavailablef(msid, start, "no samples in [%.1f, %.1f]", start, stop)
	}
	return s, nil
}

// Lookup fetches the samples within MaxGap of t and returns the nearest.
func (in *Influx) Lookup(ctx context.Context, channel string, t float64) (float64, error) {
	span := in.cfg.MaxGap
	if span <= 0 {
		span = DefaultConfig().MaxGap
	}
	s, err := in.Series(ctx, channel, t-span, t+span)
	if err != nil {
		return 0, err
	}
	return s.Nearest(t, in.cfg.MaxGap)
}

// End returns the time of the newest stored sample of msid, or NaN when
// there is none or the query fails.
func (in *Influx) End(ctx context.Context, msid string) float64 {
	result, err := in.query(ctx, BuildLastQuery(in.cfg.Bucket, in.cfg.Measurement, msid))
	if err != nil {
		in.logger.Debug("telemetry end query failed", zap.String("msid", msid), zap.Error(err))
		return math.NaN()
	}
	defer result.Close()

	end := math.NaN()
	for result.Next() {
		rec := result.Record()
		if t := FromTime(rec.Time()); math.IsNaN(end) || t > end {
			end = t
		}
	}
	if err := result.Err(); err != nil {
		in.logger.Debug("telemetry end query failed", zap.String("msid", msid), zap.Error(err))
		return math.NaN()
	}
	return end
}

// #endregion influx

// #region query
// BuildQuery renders the Flux query for one MSID over [start, stop] CXC
// seconds. The stop bound is widened by a nanosecond because Flux ranges
// are half-open.
func BuildQuery(bucket, measurement, msid string, start, stop float64) string {
	return fmt.Sprintf(`
		from(bucket: "%s")
		  |> range(start: %s, stop: %s)
		  |> filter(fn: (r) => r._measurement == "%s")
		  |> filter(fn: (r) => r.msid == "%s")
		  |> filter(fn: (r) => r._field == "value")
		  |> sort(columns: ["_time"], desc: false)
	`, bucket,
		ToTime(start).Format(time.RFC3339Nano),
		ToTime(stop).Add(time.Nanosecond).Format(time.RFC3339Nano),
		measurement, strings.ToLower(msid))
}

// BuildLastQuery renders the Flux query for the newest sample of one MSID.
func BuildLastQuery(bucket, measurement, msid string) string {
	return fmt.Sprintf(`
		from(bucket: "%s")
		  |> range(start: %s)
		  |> filter(fn: (r) => r._measurement == "%s")
		  |> filter(fn: (r) => r.msid == "%s")
		  |> filter(fn: (r) => r._field == "value")
		  |> last()
	`, bucket, Epoch.Format(time.RFC3339Nano), measurement, strings.ToLower(msid))
}

// #endregion query

// #region parse
type recordIterator interface {
	Next() bool
	Record() *query.FluxRecord
	Err() error
}

func readSeries(msid string, it recordIterator) (series.Series, error) {
	out := series.Series{Name: msid, Times: make([]float64, 0), Values: make([]float64, 0)}
	for it.Next() {
		rec := it.Record()
		v, ok := numeric(rec.Value())
		if !ok {
			continue
		}
		out.Times = append(out.Times, FromTime(rec.Time()))
		out.Values = append(out.Values, v)
	}
	if err := it.Err(); err != nil {
		return series.Series{}, checkerr.Unavailablef(msid, 0, "reading influx results: %v", err)
	}
	if err := out.Validate(); err != nil {
		return series.Series{}, fmt.Errorf("telemetry %s: %w", msid, err)
	}
	return out, nil
}

func numeric(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

// #endregion parse
