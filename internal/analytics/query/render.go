package query

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Supported dialects
const (
	DialectInfluxQL = "influxql"
	DialectPromQL   = "promql"
)

// ErrUnsupportedDialect is returned when rendering for an unknown dialect
var ErrUnsupportedDialect = errors.New("unsupported query dialect")

// DialectConfig selects the query language of the upstream store. It is
// threaded explicitly instead of being read from ambient state.
type DialectConfig struct {
	Name string `json:"name"`
}

// DefaultDialect returns the influxql dialect
func DefaultDialect() DialectConfig {
	return DialectConfig{Name: DialectInfluxQL}
}

func (d DialectConfig) name() string {
	if d.Name == "" {
		return DialectInfluxQL
	}
	return strings.ToLower(d.Name)
}

// Render builds the data query for one metric
func (p *Parameterizer) Render(metric string, params QueryParameters) (string, error) {
	switch p.Dialect.name() {
	case DialectInfluxQL:
		return renderInfluxQL(metric, params), nil
	case DialectPromQL:
		return renderPromQL(metric, params), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDialect, p.Dialect.Name)
	}
}

// RenderStatistics builds the companion query returning count, mean, stddev,
// min, max, median and 95th percentile over the lookback window.
func (p *Parameterizer) RenderStatistics(metric string, params QueryParameters) (string, error) {
	switch p.Dialect.name() {
	case DialectInfluxQL:
		return fmt.Sprintf(
			`SELECT count("value"), mean("value"), stddev("value"), min("value"), max("value"), median("value"), percentile("value", 95) FROM "%s" WHERE time > now() - %s`,
			escapeIdent(metric), FormatDuration(params.Lookback)), nil
	case DialectPromQL:
		window := FormatDuration(params.Lookback)
		parts := []string{
			fmt.Sprintf("count_over_time(%s[%s])", metric, window),
			fmt.Sprintf("avg_over_time(%s[%s])", metric, window),
			fmt.Sprintf("stddev_over_time(%s[%s])", metric, window),
			fmt.Sprintf("min_over_time(%s[%s])", metric, window),
			fmt.Sprintf("max_over_time(%s[%s])", metric, window),
			fmt.Sprintf("quantile_over_time(0.5, %s[%s])", metric, window),
			fmt.Sprintf("quantile_over_time(0.95, %s[%s])", metric, window),
		}
		return strings.Join(parts, "\n"), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDialect, p.Dialect.Name)
	}
}

func renderInfluxQL(metric string, params QueryParameters) string {
	measurement := escapeIdent(metric)
	lookback := FormatDuration(params.Lookback)

	if params.IsRaw() {
		return fmt.Sprintf(`SELECT * FROM "%s" WHERE time > now() - %s LIMIT %d`,
			measurement, lookback, params.RowLimit)
	}

	return fmt.Sprintf(`SELECT %s(*) FROM "%s" WHERE time > now() - %s GROUP BY time(%s) fill(null) LIMIT %d`,
		params.Aggregation, measurement, lookback, FormatDuration(params.BucketInterval), params.RowLimit)
}

// promFunctions maps aggregation keywords to range-vector functions
var promFunctions = map[string]string{
	"mean":  "avg_over_time",
	"sum":   "sum_over_time",
	"max":   "max_over_time",
	"min":   "min_over_time",
	"count": "count_over_time",
}

// renderPromQL returns the expression only; lookback, step and limit are
// passed to the range-query API separately.
func renderPromQL(metric string, params QueryParameters) string {
	if params.IsRaw() {
		return metric
	}
	fn, ok := promFunctions[params.Aggregation]
	if !ok {
		fn = promFunctions["mean"]
	}
	return fmt.Sprintf("%s(%s[%s])", fn, metric, FormatDuration(params.BucketInterval))
}

func escapeIdent(name string) string {
	return strings.ReplaceAll(name, `"`, `\"`)
}

// FormatDuration renders a duration in the compact form time-series stores
// accept: 30s, 5m, 1h, 7d. Durations that do not divide evenly fall back to
// the next smaller unit.
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d%day == 0:
		return fmt.Sprintf("%dd", d/day)
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	case d%time.Second == 0:
		return fmt.Sprintf("%ds", d/time.Second)
	default:
		return fmt.Sprintf("%dms", d/time.Millisecond)
	}
}
