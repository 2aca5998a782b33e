package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/soltixdb/insight/internal/analytics"
	"github.com/soltixdb/insight/internal/analytics/series"
	"github.com/soltixdb/insight/internal/analytics/stats"
	"github.com/soltixdb/insight/internal/logging"
	"github.com/soltixdb/insight/internal/models"
)

// BenchmarkConfig holds benchmark configuration
type BenchmarkConfig struct {
	BaseURL        string
	Duration       time.Duration
	AnalyzeWorkers int
	DetectWorkers  int
	Points         int
	Metrics        int
	SpikeRate      float64
	RequestPause   time.Duration
	APIKey         string
	OutputDir      string
	HTTPClient     *http.Client // Shared HTTP client for connection pooling
}

// Recorder collects latencies and counters for one endpoint
type Recorder struct {
	Name       string
	latencies  []float64
	success    int64
	errors     int64
	firstError string
	mu         sync.Mutex
}

func (r *Recorder) record(latencyMs float64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies = append(r.latencies, latencyMs)
	if err != nil {
		r.errors++
		if r.firstError == "" {
			r.firstError = err.Error()
		}
		return
	}
	r.success++
}

// Result represents benchmark results
type Result struct {
	Operation  string
	TotalOps   int64
	SuccessOps int64
	ErrorOps   int64
	Duration   time.Duration
	Throughput float64 // ops/sec
	Latency    stats.Summary
	P99Latency float64 // ms
	ErrorMsg   string  // First error message
}

func main() {
	config := BenchmarkConfig{}
	flag.StringVar(&config.BaseURL, "url", "http://127.0.0.1:5580", "Base URL of the API")
	flag.DurationVar(&config.Duration, "duration", 30*time.Second, "Benchmark duration")
	flag.IntVar(&config.AnalyzeWorkers, "analyze-workers", 4, "Concurrent /v1/analyze workers")
	flag.IntVar(&config.DetectWorkers, "detect-workers", 4, "Concurrent /v1/detect workers")
	flag.IntVar(&config.Points, "points", 2000, "Samples per generated series")
	flag.IntVar(&config.Metrics, "metrics", 2, "Metrics per analyze request")
	flag.Float64Var(&config.SpikeRate, "spike-rate", 0.01, "Probability of injecting a spike per sample")
	flag.DurationVar(&config.RequestPause, "pause", 0, "Pause between requests per worker")
	flag.StringVar(&config.APIKey, "api-key", "", "API key for authentication")
	flag.StringVar(&config.OutputDir, "output", "benchmark_results", "Directory for the results file")
	flag.Parse()

	config.HTTPClient = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	fmt.Printf("=== Insight Benchmark Tool ===\n")
	fmt.Printf("  URL: %s\n", config.BaseURL)
	fmt.Printf("  Duration: %s\n", config.Duration)
	fmt.Printf("  Analyze Workers: %d (%d metrics x %d points)\n", config.AnalyzeWorkers, config.Metrics, config.Points)
	fmt.Printf("  Detect Workers: %d (%d points)\n", config.DetectWorkers, config.Points)
	fmt.Printf("  Spike Rate: %.3f\n\n", config.SpikeRate)

	analyze := &Recorder{Name: "Analyze"}
	detect := &Recorder{Name: "Detect"}
	runBenchmark(config, analyze, detect)

	results := []Result{
		calculateResult(analyze, config.Duration),
		calculateResult(detect, config.Duration),
	}

	fmt.Printf("\n=== Benchmark Results ===\n\n")
	for _, r := range results {
		displayResult(os.Stdout, r)
		fmt.Println()
	}

	saveResults(config, results)
}

func runBenchmark(config BenchmarkConfig, analyze, detect *Recorder) {
	var wg sync.WaitGroup
	stopCh := make(chan struct{})
	startTime := time.Now()
	var sent int64

	for i := 0; i < config.AnalyzeWorkers; i++ {
		wg.Add(1)
		go worker(int64(i), config, stopCh, &wg, &sent, analyze, func(rng *rand.Rand) (string, interface{}) {
			return "/v1/analyze", analyzePayload(rng, config)
		})
	}
	for i := 0; i < config.DetectWorkers; i++ {
		wg.Add(1)
		go worker(int64(1000+i), config, stopCh, &wg, &sent, detect, func(rng *rand.Rand) (string, interface{}) {
			return "/v1/detect", models.DetectRequest{
				Metric: "bench_detect",
				Data:   generateSeries(rng, config.Points, config.SpikeRate),
			}
		})
	}

	go progressReporter(&sent, config.Duration, startTime)

	time.Sleep(config.Duration)
	close(stopCh)
	wg.Wait()
}

func worker(seed int64, config BenchmarkConfig, stopCh chan struct{}, wg *sync.WaitGroup,
	sent *int64, rec *Recorder, next func(*rand.Rand) (string, interface{}),
) {
	defer wg.Done()
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + seed))

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		path, payload := next(rng)
		start := time.Now()
		err := makeRequest(config, config.BaseURL+path, payload)
		rec.record(time.Since(start).Seconds()*1000, err)
		atomic.AddInt64(sent, 1)

		if config.RequestPause > 0 {
			time.Sleep(config.RequestPause)
		}
	}
}

func analyzePayload(rng *rand.Rand, config BenchmarkConfig) models.AnalyzeRequest {
	req := models.AnalyzeRequest{
		Intent: analytics.Intent{
			Operation: analytics.OperationMean,
			TimeRange: analytics.TimeRange24h,
			Purpose:   analytics.PurposeAnomalyDetection,
		},
	}
	for m := 0; m < config.Metrics; m++ {
		name := fmt.Sprintf("bench_metric_%d", m)
		req.Intent.MetricNames = append(req.Intent.MetricNames, name)
		req.Results = append(req.Results, models.MetricData{
			Metric: name,
			Data:   generateSeries(rng, config.Points, config.SpikeRate),
		})
	}
	return req
}

// generateSeries produces a noisy sine wave in row form with occasional
// spikes so every heuristic has work to do
func generateSeries(rng *rand.Rand, points int, spikeRate float64) series.ResultSet {
	base := time.Now().Add(-time.Duration(points) * time.Minute).UnixMilli()
	rows := make([][]interface{}, points)
	for i := range rows {
		v := 100 + 20*math.Sin(float64(i)/30) + rng.NormFloat64()*3
		if rng.Float64() < spikeRate {
			v *= 5
		}
		rows[i] = []interface{}{base + int64(i)*60_000, v}
	}
	return series.ResultSet{Shape: series.ShapeRows, Rows: rows}
}

func progressReporter(sent *int64, duration time.Duration, startTime time.Time) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		<-ticker.C
		elapsed := time.Since(startTime)
		if elapsed >= duration {
			return
		}
		total := atomic.LoadInt64(sent)
		fmt.Printf("[%s remaining] Requests: %d (%.0f/s)\n",
			(duration - elapsed).Round(time.Second), total, float64(total)/elapsed.Seconds())
	}
}

func makeRequest(config BenchmarkConfig, url string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(logging.RequestIDHeader, uuid.NewString())
	if config.APIKey != "" {
		req.Header.Set("X-API-Key", config.APIKey)
	}

	resp, err := config.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	// Read and discard body to reuse connection
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

func calculateResult(rec *Recorder, duration time.Duration) Result {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	samples := make(analytics.SampleSequence, len(rec.latencies))
	for i, l := range rec.latencies {
		samples[i] = analytics.Sample{Timestamp: int64(i), Value: l}
	}

	return Result{
		Operation:  rec.Name,
		TotalOps:   rec.success + rec.errors,
		SuccessOps: rec.success,
		ErrorOps:   rec.errors,
		Duration:   duration,
		Throughput: float64(rec.success) / duration.Seconds(),
		Latency:    stats.Summarize(samples),
		P99Latency: stats.PercentileNearestRank(rec.latencies, 99),
		ErrorMsg:   rec.firstError,
	}
}

func displayResult(w io.Writer, r Result) {
	pct := func(n int64) float64 {
		if r.TotalOps == 0 {
			return 0
		}
		return float64(n) / float64(r.TotalOps) * 100
	}

	_, _ = fmt.Fprintf(w, "=== %s Operations ===\n", r.Operation)
	_, _ = fmt.Fprintf(w, "Total Operations: %d\n", r.TotalOps)
	_, _ = fmt.Fprintf(w, "Success:          %d (%.2f%%)\n", r.SuccessOps, pct(r.SuccessOps))
	_, _ = fmt.Fprintf(w, "Errors:           %d (%.2f%%)\n", r.ErrorOps, pct(r.ErrorOps))
	_, _ = fmt.Fprintf(w, "Duration:         %s\n", r.Duration)
	_, _ = fmt.Fprintf(w, "Throughput:       %.2f ops/sec\n", r.Throughput)
	if r.ErrorOps > 0 && r.ErrorMsg != "" {
		_, _ = fmt.Fprintf(w, "First Error:      %s\n", r.ErrorMsg)
	}
	_, _ = fmt.Fprintf(w, "\nLatency (ms):\n")
	_, _ = fmt.Fprintf(w, "  Min:  %.2f\n", r.Latency.Min)
	_, _ = fmt.Fprintf(w, "  Avg:  %.2f\n", r.Latency.Mean)
	_, _ = fmt.Fprintf(w, "  P50:  %.2f\n", r.Latency.Median)
	_, _ = fmt.Fprintf(w, "  P95:  %.2f\n", r.Latency.Percentile95)
	_, _ = fmt.Fprintf(w, "  P99:  %.2f\n", r.P99Latency)
	_, _ = fmt.Fprintf(w, "  Max:  %.2f\n", r.Latency.Max)
}

func saveResults(config BenchmarkConfig, results []Result) {
	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		fmt.Printf("Failed to create result directory: %v\n", err)
		return
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(config.OutputDir, fmt.Sprintf("insight_benchmark_%s.txt", timestamp))

	f, err := os.Create(filename)
	if err != nil {
		fmt.Printf("Failed to create result file: %v\n", err)
		return
	}
	defer func() { _ = f.Close() }()

	_, _ = fmt.Fprintf(f, "=== Insight API Benchmark Results ===\n")
	_, _ = fmt.Fprintf(f, "Date: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(f, "URL: %s\n", config.BaseURL)
	_, _ = fmt.Fprintf(f, "Points: %d, Metrics: %d, Spike Rate: %.3f\n\n", config.Points, config.Metrics, config.SpikeRate)
	for _, r := range results {
		displayResult(f, r)
		_, _ = fmt.Fprintf(f, "\n")
	}

	fmt.Printf("Results saved to: %s\n", filename)
}
