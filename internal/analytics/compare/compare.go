// Package compare produces relative insights between two metric summaries.
package compare

import (
	"fmt"

	"github.com/soltixdb/insight/internal/analytics/stats"
)

const (
	// HigherRatio is the mean ratio above which A is reported as higher
	HigherRatio = 1.5
	// LowerRatio is the mean ratio below which B is reported as higher
	LowerRatio = 0.667
	// VariabilityRatio is how many times larger one range must be
	VariabilityRatio = 2.0
)

// MetricSummary names a summary
type MetricSummary struct {
	Name    string        `json:"name"`
	Summary stats.Summary `json:"summary"`
}

// ComparisonResult holds both summaries and the ordered insights
type ComparisonResult struct {
	MetricA  MetricSummary `json:"metric_a"`
	MetricB  MetricSummary `json:"metric_b"`
	Insights []string      `json:"insights"`
}

// Compare never fails. A non-positive mean on either side suppresses the
// magnitude insight.
func Compare(nameA string, a stats.Summary, nameB string, b stats.Summary) ComparisonResult {
	result := ComparisonResult{
		MetricA:  MetricSummary{Name: nameA, Summary: a},
		MetricB:  MetricSummary{Name: nameB, Summary: b},
		Insights: make([]string, 0, 2),
	}

	if insight, ok := magnitude(nameA, a, nameB, b); ok {
		result.Insights = append(result.Insights, insight)
	}
	if insight, ok := variability(nameA, a, nameB, b); ok {
		result.Insights = append(result.Insights, insight)
	}

	return result
}

func magnitude(nameA string, a stats.Summary, nameB string, b stats.Summary) (string, bool) {
	if a.Mean <= 0 || b.Mean <= 0 {
		return "", false
	}

	ratio := a.Mean / b.Mean
	switch {
	case ratio > HigherRatio:
		return fmt.Sprintf("%s has %.1fx higher average than %s", nameA, ratio, nameB), true
	case ratio < LowerRatio:
		return fmt.Sprintf("%s has %.1fx higher average than %s", nameB, 1/ratio, nameA), true
	default:
		return fmt.Sprintf("%s and %s have similar averages", nameA, nameB), true
	}
}

func variability(nameA string, a stats.Summary, nameB string, b stats.Summary) (string, bool) {
	rangeA := a.Max - a.Min
	rangeB := b.Max - b.Min

	switch {
	case rangeA > rangeB*VariabilityRatio:
		return fmt.Sprintf("%s shows much higher variability than %s", nameA, nameB), true
	case rangeB > rangeA*VariabilityRatio:
		return fmt.Sprintf("%s shows much higher variability than %s", nameB, nameA), true
	default:
		return "", false
	}
}
