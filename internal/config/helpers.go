package config

import (
	"net"
	"strconv"

	"github.com/soltixdb/insight/internal/analytics/query"
)

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Logging.Level == "debug" && c.Logging.Format == "console"
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.HTTPPort))
}

// DialectConfig returns the query dialect the parameterizer renders for
func (c *AnalysisConfig) DialectConfig() query.DialectConfig {
	return query.DialectConfig{Name: c.Dialect}
}

// Limits returns the row limits; zero values fall back to the defaults
func (c *AnalysisConfig) Limits() query.Limits {
	return query.Limits{
		Standard: c.StandardRowLimit,
		Anomaly:  c.AnomalyRowLimit,
	}
}

// Parameterizer builds the query parameterizer for this configuration
func (c *AnalysisConfig) Parameterizer() *query.Parameterizer {
	return query.NewParameterizer(c.DialectConfig(), c.Limits())
}
