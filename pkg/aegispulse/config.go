package aegispulse

import (
	"github.com/ghalamif/AegisPulse/internal/app/config"
	"github.com/ghalamif/AegisPulse/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// MonitorConfig drives the in-process telemetry pipeline.
	MonitorConfig = config.MonitorConfig
	// TransportConfig tunes the net/http delivery primitives.
	TransportConfig = config.TransportConfig
	// CollectorConfig configures the reference collector.
	CollectorConfig = config.CollectorConfig
	// PostgresConfig configures the default sink.
	PostgresConfig = config.PostgresConfig
	// RateLimitConfig bounds collector requests per client IP.
	RateLimitConfig = config.RateLimitConfig
	// SpoolConfig configures the on-disk spool of refused batches.
	SpoolConfig = config.SpoolConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// Policy controls collector queue thresholds.
	Policy = ports.Policy
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
