package observability

import (
	"strings"

	"github.com/smallbiznis/motorbook/internal/config"
	"github.com/smallbiznis/motorbook/internal/observability/logger"
	"github.com/smallbiznis/motorbook/internal/observability/metrics"
	"github.com/smallbiznis/motorbook/internal/observability/tracing"
)

const defaultSamplingRatio = 0.1

// Config is the observability view of the application config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled       bool
	OtelEndpoint      string
	OtelProtocol      string
	OtelSamplingRatio float64
}

func LoadConfig(cfg config.Config) Config {
	out := Config{
		ServiceName:       strings.TrimSpace(cfg.AppName),
		Environment:       strings.TrimSpace(cfg.Environment),
		Version:           strings.TrimSpace(cfg.AppVersion),
		LogLevel:          strings.ToLower(strings.TrimSpace(cfg.LogLevel)),
		LogFormat:         strings.ToLower(strings.TrimSpace(cfg.LogFormat)),
		OtelEnabled:       cfg.OtelEnabled,
		OtelEndpoint:      strings.TrimSpace(cfg.OtelEndpoint),
		OtelProtocol:      strings.ToLower(strings.TrimSpace(cfg.OtelProtocol)),
		OtelSamplingRatio: cfg.OtelSamplingRatio,
	}
	if out.ServiceName == "" {
		out.ServiceName = "motorbook"
	}
	if out.LogLevel == "" {
		out.LogLevel = "info"
	}
	if out.OtelProtocol == "" {
		out.OtelProtocol = "grpc"
	}
	if out.OtelSamplingRatio <= 0 || out.OtelSamplingRatio > 1 {
		out.OtelSamplingRatio = defaultSamplingRatio
	}
	return out
}

// Debug is true for debug logging or any development environment.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func (c Config) logger() logger.Config {
	return logger.Config{
		ServiceName:         c.ServiceName,
		Environment:         c.Environment,
		Version:             c.Version,
		Level:               c.LogLevel,
		Format:              c.LogFormat,
		Debug:               c.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: c.Debug(),
	}
}

func (c Config) tracing() tracing.Config {
	return tracing.Config{
		Enabled:          c.OtelEnabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.OtelEndpoint,
		ExporterProtocol: c.OtelProtocol,
		SamplingRatio:    c.OtelSamplingRatio,
	}
}

func (c Config) metrics() metrics.Config {
	return metrics.Config{
		Enabled:          c.OtelEnabled,
		ExporterEndpoint: c.OtelEndpoint,
		ExporterProtocol: c.OtelProtocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
	}
}
