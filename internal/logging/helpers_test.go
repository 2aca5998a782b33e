package logging

import "github.com/soltixdb/insight/internal/config"

func configFor(level, format, output string) config.LoggingConfig {
	return config.LoggingConfig{Level: level, Format: format, OutputPath: output}
}
