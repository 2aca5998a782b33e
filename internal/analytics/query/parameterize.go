// Package query turns a resolved intent into concrete query parameters and
// renders them into store-specific query strings.
package query

import (
	"time"

	"github.com/soltixdb/insight/internal/analytics"
)

const (
	// DefaultStandardRowLimit caps rows for standard queries
	DefaultStandardRowLimit = 1000
	// DefaultAnomalyRowLimit caps rows for anomaly-detection queries
	DefaultAnomalyRowLimit = 2000

	// DefaultLookback applies to unknown or custom time ranges
	DefaultLookback = 24 * time.Hour

	day = 24 * time.Hour
)

// QueryParameters is derived deterministically from an Intent
type QueryParameters struct {
	Aggregation    string        `json:"aggregation,omitempty"` // empty means raw (wildcard projection)
	Lookback       time.Duration `json:"lookback"`
	BucketInterval time.Duration `json:"bucket_interval"`
	RowLimit       int           `json:"row_limit"`
}

// IsRaw reports whether no aggregation was requested
func (p QueryParameters) IsRaw() bool {
	return p.Aggregation == ""
}

// Limits holds the row caps for both policies
type Limits struct {
	Standard int
	Anomaly  int
}

// DefaultLimits returns the stock row caps
func DefaultLimits() Limits {
	return Limits{
		Standard: DefaultStandardRowLimit,
		Anomaly:  DefaultAnomalyRowLimit,
	}
}

// Parameterizer maps intents to query parameters. The zero value uses the
// default limits and the influxql dialect.
type Parameterizer struct {
	Dialect DialectConfig
	Limits  Limits
}

// NewParameterizer creates a Parameterizer for the given dialect and limits.
// Non-positive limits fall back to the defaults.
func NewParameterizer(dialect DialectConfig, limits Limits) *Parameterizer {
	return &Parameterizer{
		Dialect: dialect,
		Limits:  limits.withDefaults(),
	}
}

func (l Limits) withDefaults() Limits {
	if l.Standard <= 0 {
		l.Standard = DefaultStandardRowLimit
	}
	if l.Anomaly <= 0 {
		l.Anomaly = DefaultAnomalyRowLimit
	}
	return l
}

// Parameterize never fails: defaults fill every gap
func (p *Parameterizer) Parameterize(intent analytics.Intent) QueryParameters {
	limits := p.Limits.withDefaults()
	params := QueryParameters{
		Aggregation: AggregationFor(intent.Operation),
	}

	if intent.IsAnomalyDetection() {
		// Longer history and finer buckets than the literal request
		params.Lookback = widenForAnomaly(intent.TimeRange)
		params.BucketInterval = anomalyBucket(params.Lookback)
		params.RowLimit = limits.Anomaly
		return params
	}

	params.Lookback = LookbackFor(intent.TimeRange)
	params.BucketInterval = standardBucket(params.Lookback)
	params.RowLimit = limits.Standard
	return params
}

// LookbackFor maps a time range label to a lookback window
func LookbackFor(label string) time.Duration {
	switch label {
	case analytics.TimeRange1h:
		return time.Hour
	case analytics.TimeRange24h:
		return 24 * time.Hour
	case analytics.TimeRange7d:
		return 7 * day
	default:
		return DefaultLookback
	}
}

// AggregationFor maps an operation to its aggregation keyword. Raw requests
// no aggregation; anything unrecognized falls back to mean.
func AggregationFor(op analytics.Operation) string {
	switch op {
	case analytics.OperationRaw:
		return ""
	case analytics.OperationMean, analytics.OperationSum, analytics.OperationMax,
		analytics.OperationMin, analytics.OperationCount:
		return string(op)
	default:
		return string(analytics.OperationMean)
	}
}

func standardBucket(lookback time.Duration) time.Duration {
	switch {
	case lookback <= time.Hour:
		return 5 * time.Minute
	case lookback <= 24*time.Hour:
		return time.Hour
	default:
		return day
	}
}

// widenForAnomaly keys off the label, so custom ranges widen to 30d rather
// than to the widened form of the 24h default.
func widenForAnomaly(label string) time.Duration {
	switch label {
	case analytics.TimeRange1h:
		return 6 * time.Hour
	case analytics.TimeRange24h:
		return 7 * day
	default:
		return 30 * day
	}
}

func anomalyBucket(lookback time.Duration) time.Duration {
	switch lookback {
	case 6 * time.Hour:
		return 30 * time.Second
	case 7 * day:
		return 5 * time.Minute
	default:
		return time.Hour
	}
}
