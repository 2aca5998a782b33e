package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/soltixdb/insight/internal/analytics/anomaly"
	"github.com/soltixdb/insight/internal/analytics/query"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. INSIGHT_SERVER_HTTP_PORT
const EnvPrefix = "INSIGHT"

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")            // Current directory
		v.AddConfigPath("./configs")    // Project configs directory
		v.AddConfigPath("./config")     // Alternative config directory
		v.AddConfigPath("/etc/insight") // System-wide config
	}

	// Set defaults
	setDefaults(v)

	// Enable environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	// Server defaults
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)

	// Auth defaults
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_keys", []string{})

	// Queue defaults
	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.url", d.Queue.URL)
	v.SetDefault("queue.stream_prefix", d.Queue.StreamPrefix)

	// Worker defaults
	v.SetDefault("worker.enabled", d.Worker.Enabled)
	v.SetDefault("worker.request_subject", d.Worker.RequestSubject)
	v.SetDefault("worker.result_subject", d.Worker.ResultSubject)
	v.SetDefault("worker.job_timeout", d.Worker.JobTimeout)
	v.SetDefault("worker.compress", d.Worker.Compress)
	v.SetDefault("worker.compress_min_size", d.Worker.CompressMinSize)

	// Analysis defaults
	v.SetDefault("analysis.dialect", d.Analysis.Dialect)
	v.SetDefault("analysis.standard_row_limit", d.Analysis.StandardRowLimit)
	v.SetDefault("analysis.anomaly_row_limit", d.Analysis.AnomalyRowLimit)
	th := d.Analysis.Thresholds
	v.SetDefault("analysis.thresholds.min_samples", th.MinSamples)
	v.SetDefault("analysis.thresholds.outlier_sigma", th.OutlierSigma)
	v.SetDefault("analysis.thresholds.outlier_high_ratio", th.OutlierHighRatio)
	v.SetDefault("analysis.thresholds.max_outlier_details", th.MaxOutlierDetails)
	v.SetDefault("analysis.thresholds.spike_ratio", th.SpikeRatio)
	v.SetDefault("analysis.thresholds.max_spike_details", th.MaxSpikeDetails)
	v.SetDefault("analysis.thresholds.flatline_window", th.FlatlineWindow)
	v.SetDefault("analysis.thresholds.flatline_min_window", th.FlatlineMinWindow)
	v.SetDefault("analysis.thresholds.flatline_ratio", th.FlatlineRatio)
	v.SetDefault("analysis.thresholds.confidence_divisor", th.ConfidenceDivisor)
	v.SetDefault("analysis.thresholds.min_confidence", th.MinConfidence)
	v.SetDefault("analysis.thresholds.max_confidence", th.MaxConfidence)

	// Logging defaults
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		// Return default configuration
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			HTTPPort:     5580,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			BodyLimit:    16 * 1024 * 1024,
		},
		Queue: QueueConfig{
			Type:         "memory",
			URL:          "nats://localhost:4222",
			StreamPrefix: "insight",
		},
		Worker: WorkerConfig{
			Enabled:         false,
			RequestSubject:  "insight.analyze.requests",
			ResultSubject:   "insight.analyze.results",
			JobTimeout:      30 * time.Second,
			Compress:        true,
			CompressMinSize: 1024,
		},
		Analysis: AnalysisConfig{
			Dialect:          query.DialectInfluxQL,
			StandardRowLimit: query.DefaultStandardRowLimit,
			AnomalyRowLimit:  query.DefaultAnomalyRowLimit,
			Thresholds:       anomaly.DefaultThresholds(),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}
