package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/soltixdb/insight/internal/analytics"
	"github.com/soltixdb/insight/internal/analytics/anomaly"
	"github.com/soltixdb/insight/internal/analytics/series"
	"github.com/soltixdb/insight/internal/analytics/stats"
	"github.com/soltixdb/insight/internal/config"
)

func main() {
	// Command line flags
	input := flag.String("input", "-", "Result set JSON file, or - for stdin")
	metric := flag.String("metric", "", "Metric name used in messages (optional)")
	mode := flag.String("mode", "detect", "What to run: detect or statistics")
	configPath := flag.String("config", "", "Config file supplying anomaly thresholds (optional)")
	pretty := flag.Bool("pretty", true, "Indent the JSON output")

	flag.Parse()

	data, err := readInput(*input)
	if err != nil {
		log.Fatalf("Error reading input: %v\n", err)
	}

	shape, err := series.Decode(data)
	if err != nil {
		log.Fatalf("Error decoding result set: %v\n", err)
	}
	samples := series.Extract(shape)

	var out interface{}
	switch *mode {
	case "detect":
		cfg := config.LoadOrDefault(*configPath)
		out = anomaly.NewDetector(cfg.Analysis.Thresholds).Detect(samples, *metric)
	case "statistics", "stats":
		out = statisticsOutput{
			Metric:      *metric,
			SampleCount: samples.Len(),
			Summary:     stats.Summarize(samples),
			Window:      window(samples),
		}
	default:
		log.Fatalf("Error: unknown mode '%s' (expected detect or statistics)\n", *mode)
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		log.Fatalf("Error writing output: %v\n", err)
	}
}

type statisticsOutput struct {
	Metric      string        `json:"metric,omitempty"`
	SampleCount int           `json:"sample_count"`
	Summary     stats.Summary `json:"summary"`
	Window      *timeWindow   `json:"window,omitempty"`
}

type timeWindow struct {
	First int64 `json:"first"`
	Last  int64 `json:"last"`
}

// window reports the first and last timestamps; samples are already sorted
func window(samples analytics.SampleSequence) *timeWindow {
	if samples.Len() == 0 {
		return nil
	}
	return &timeWindow{
		First: samples[0].Timestamp,
		Last:  samples[samples.Len()-1].Timestamp,
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
