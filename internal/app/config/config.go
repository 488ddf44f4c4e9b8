package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/AegisPulse/internal/domain"
	"github.com/ghalamif/AegisPulse/internal/ports"
)

type Config struct {
	Monitor   MonitorConfig   `yaml:"monitor"`
	Collector CollectorConfig `yaml:"collector"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// MonitorConfig drives the in-process pipeline. Invalid values resolve to defaults.
type MonitorConfig struct {
	DSN            string `yaml:"dsn"`
	APIKey         string `yaml:"apikey"`
	UserID         string `yaml:"user_id"`
	MaxBreadcrumbs int    `yaml:"max_breadcrumbs"`
	// RecordScreenTime is the checkpoint period in seconds.
	RecordScreenTime int `yaml:"record_screen_time"`
	// MaxFrames caps frames per recording session; zero means unbounded.
	MaxFrames int                        `yaml:"max_frames"`
	Silent    map[domain.Capability]bool `yaml:"silent"`
	Transport TransportConfig            `yaml:"transport"`
}

type TransportConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	MaxInFlight int64         `yaml:"max_in_flight"`
}

type CollectorConfig struct {
	Addr      string          `yaml:"addr"`
	Path      string          `yaml:"path"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Policy    ports.Policy    `yaml:"policy"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Spool     SpoolConfig     `yaml:"spool"`
}

// SpoolConfig parks batches the sink refused on disk. An empty Dir disables it.
type SpoolConfig struct {
	Dir      string `yaml:"dir"`
	MaxBytes int64  `yaml:"max_bytes"`
}

type PostgresConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

// RateLimitConfig bounds requests per client IP. EventLimit is the per-second rate
// (and burst), -1 disables limiting; IPLimit is how many client IPs are tracked at once.
type RateLimitConfig struct {
	EventLimit int `yaml:"event_limit"`
	IPLimit    int `yaml:"ip_limit"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

const (
	DefaultMaxBreadcrumbs   = 20
	DefaultRecordScreenTime = 10
)

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	c.Monitor.ApplyDefaults()

	if c.Collector.Addr == "" {
		c.Collector.Addr = ":8080"
	}
	if c.Collector.Path == "" {
		c.Collector.Path = "/tracking"
	}
	if c.Collector.Postgres.Table == "" {
		c.Collector.Postgres.Table = "monitor_events"
	}
	if c.Collector.Policy.MaxQueueLen == 0 {
		c.Collector.Policy.MaxQueueLen = 10_000
	}
	if c.Collector.Policy.MaxBatchSize == 0 {
		c.Collector.Policy.MaxBatchSize = 500
	}
	if c.Collector.Policy.IdleSleep == 0 {
		c.Collector.Policy.IdleSleep = 5 * time.Millisecond
	}
	if c.Collector.Policy.OnQueueFull == "" {
		c.Collector.Policy.OnQueueFull = "drop"
	}
	if c.Collector.RateLimit.EventLimit == 0 {
		c.Collector.RateLimit.EventLimit = 300
	}
	if c.Collector.RateLimit.IPLimit == 0 {
		c.Collector.RateLimit.IPLimit = 1000
	}
	if c.Collector.Spool.Dir != "" && c.Collector.Spool.MaxBytes == 0 {
		c.Collector.Spool.MaxBytes = 1 << 30
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
}

// ApplyDefaults replaces missing or out-of-range values; it never fails.
func (m *MonitorConfig) ApplyDefaults() {
	if m.MaxBreadcrumbs <= 0 {
		m.MaxBreadcrumbs = DefaultMaxBreadcrumbs
	}
	if m.RecordScreenTime <= 0 {
		m.RecordScreenTime = DefaultRecordScreenTime
	}
	if m.MaxFrames < 0 {
		m.MaxFrames = 0
	}
	if m.Transport.Timeout <= 0 {
		m.Transport.Timeout = 10 * time.Second
	}
	if m.Transport.MaxInFlight <= 0 {
		m.Transport.MaxInFlight = 16
	}
}

// Enabled reports whether a capture source is on. Sources are on unless silenced.
func (m MonitorConfig) Enabled(capability domain.Capability) bool {
	return !m.Silent[capability]
}

// UnknownSilent lists silenced names that match no capture source, sorted. They are
// ignored.
func (m MonitorConfig) UnknownSilent() []domain.Capability {
	var out []domain.Capability
	for name := range m.Silent {
		if !known(name) {
			out = append(out, name)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RecordInterval is the recording checkpoint period.
func (m MonitorConfig) RecordInterval() time.Duration {
	secs := m.RecordScreenTime
	if secs <= 0 {
		secs = DefaultRecordScreenTime
	}
	return time.Duration(secs) * time.Second
}

func (c *Config) validate() error {
	switch c.Collector.Policy.OnQueueFull {
	case "block", "drop", "reject":
	default:
		return fmt.Errorf("collector.policy.on_queue_full must be block, drop or reject, got %q", c.Collector.Policy.OnQueueFull)
	}
	if c.Collector.Policy.MaxQueueLen < 0 || c.Collector.Policy.MaxBatchSize < 0 {
		return fmt.Errorf("collector.policy sizes must not be negative")
	}
	if c.Collector.RateLimit.EventLimit < -1 || c.Collector.RateLimit.IPLimit < 0 {
		return fmt.Errorf("collector.rate_limit: event_limit must be positive or -1 and ip_limit must not be negative")
	}
	if c.Collector.Spool.MaxBytes < 0 {
		return fmt.Errorf("collector.spool.max_bytes must not be negative")
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	return nil
}

// ValidateCollector checks what running the collector against Postgres needs.
func (c *Config) ValidateCollector() error {
	if c.Collector.Postgres.ConnString == "" {
		return fmt.Errorf("collector.postgres.conn_string is required")
	}
	return nil
}

func known(name domain.Capability) bool {
	for _, c := range domain.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}
