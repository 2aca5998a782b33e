package anomaly

import (
	"fmt"

	"github.com/soltixdb/insight/internal/analytics/stats"
)

// flatlineHeuristic compares the variance of the most recent window against
// the global mean, not the local one, so a metric that dropped from a high
// level to a flat low level is still flagged.
type flatlineHeuristic struct{}

func (flatlineHeuristic) kind() Kind {
	return KindFlatline
}

func (flatlineHeuristic) evaluate(in input, th Thresholds) *Finding {
	start := len(in.samples) - th.FlatlineWindow
	if start < 0 {
		start = 0
	}
	recent := in.samples[start:]
	if len(recent) <= th.FlatlineMinWindow {
		return nil
	}

	localMean, localStdDev := stats.MeanStdDev(recent.Values())
	if !(localStdDev < in.mean*th.FlatlineRatio) {
		return nil
	}

	return &Finding{
		Kind:     KindFlatline,
		Message:  fmt.Sprintf("Metric appears flatlined over the last %d samples", len(recent)),
		Severity: SeverityMedium,
		Count:    intPtr(len(recent)),
		Detail: FlatlineDetail{
			WindowSize:  len(recent),
			LocalMean:   localMean,
			LocalStdDev: localStdDev,
			GlobalMean:  in.mean,
		},
	}
}
