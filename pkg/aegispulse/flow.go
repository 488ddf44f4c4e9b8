package aegispulse

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// Flow wires a collector and the monitors reporting to it from one configuration:
// Conf loads it, StreamIN shapes how tracking requests are admitted and StreamOUT
// chooses where admitted records land before building the CollectorRuntime.
type Flow struct {
	cfg  *Config
	opts []CollectorRuntimeOption
	err  error
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// StreamInOption configures the receiving side of the collector: listener, rate limit,
// queue and backpressure.
type StreamInOption func(*Flow)

// StreamOutOption configures the storage side of the collector: sink, batching and spool.
type StreamOutOption func(*Flow)

// Conf loads YAML from disk, applies FlowOption values, and returns a Flow builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config. Missing values are defaulted
// in place.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg.ApplyDefaults()
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the underlying configuration so callers can tweak it before building a runtime.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// CollectorURL is where monitors reach this flow's collector. A wildcard listen host is
// reported as the loopback address.
func (f *Flow) CollectorURL() string {
	if f == nil {
		return ""
	}
	host, port, err := net.SplitHostPort(f.cfg.Collector.Addr)
	if err != nil {
		return "http://" + f.cfg.Collector.Addr + f.cfg.Collector.Path
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + f.cfg.Collector.Path
}

// Monitor builds a Monitor initialised with the monitor section of the configuration.
// Without a configured dsn it reports to CollectorURL.
func (f *Flow) Monitor(opts ...MonitorOption) (*Monitor, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	mc := f.cfg.Monitor
	if mc.DSN == "" {
		mc.DSN = f.CollectorURL()
	}
	m := NewMonitor(opts...)
	m.Init(mc)
	return m, nil
}

// StreamIN applies receiving-side overrides.
func (f *Flow) StreamIN(opts ...StreamInOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// StreamOUT applies storage-side overrides and builds a CollectorRuntime ready to run.
func (f *Flow) StreamOUT(opts ...StreamOutOption) (*CollectorRuntime, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return NewCollectorRuntime(f.cfg, f.opts...)
}

// Run is a shortcut for StreamOUT + runtime.Run.
func (f *Flow) Run(ctx context.Context, opts ...StreamOutOption) error {
	rt, err := f.StreamOUT(opts...)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

// WithFlowOptions appends raw CollectorRuntimeOption values during Conf.
func WithFlowOptions(opts ...CollectorRuntimeOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// StreamInListen moves the tracking endpoint. Empty values keep the configured ones.
func StreamInListen(addr, path string) StreamInOption {
	return func(f *Flow) {
		if f == nil {
			return
		}
		if addr != "" {
			f.cfg.Collector.Addr = addr
		}
		if path == "" {
			return
		}
		if !strings.HasPrefix(path, "/") {
			f.fail(fmt.Errorf("collector path %q must start with /", path))
			return
		}
		f.cfg.Collector.Path = path
	}
}

// StreamInRateLimit allows perSecond requests per client IP across at most trackedIPs
// addresses. perSecond -1 turns limiting off.
func StreamInRateLimit(perSecond, trackedIPs int) StreamInOption {
	return func(f *Flow) {
		if f == nil {
			return
		}
		if perSecond == 0 || perSecond < -1 || trackedIPs <= 0 {
			f.fail(fmt.Errorf("rate limit needs perSecond > 0 or -1 and trackedIPs > 0, got %d/%d", perSecond, trackedIPs))
			return
		}
		f.cfg.Collector.RateLimit = RateLimitConfig{EventLimit: perSecond, IPLimit: trackedIPs}
	}
}

// StreamInBackpressure sets what happens to a tracking request once maxQueued records wait
// for the sink: "block", "drop" or "reject".
func StreamInBackpressure(onFull string, maxQueued int) StreamInOption {
	return func(f *Flow) {
		if f == nil {
			return
		}
		switch onFull {
		case "block", "drop", "reject":
		default:
			f.fail(fmt.Errorf("queue policy must be block, drop or reject, got %q", onFull))
			return
		}
		f.cfg.Collector.Policy.OnQueueFull = onFull
		if maxQueued > 0 {
			f.cfg.Collector.Policy.MaxQueueLen = maxQueued
		}
	}
}

// StreamInQueue swaps the in-memory queue for a caller-provided implementation.
func StreamInQueue(q RecordQueue) StreamInOption {
	return func(f *Flow) {
		if f != nil && q != nil {
			f.appendOptions(WithRecordQueue(q))
		}
	}
}

// StreamInObservability overrides the default Prometheus-based observability stack.
func StreamInObservability(obs Observability) StreamInOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamOutPostgres points the default sink at another database or table.
func StreamOutPostgres(connString, table string) StreamOutOption {
	return func(f *Flow) {
		if f == nil {
			return
		}
		if connString != "" {
			f.cfg.Collector.Postgres.ConnString = connString
		}
		if table != "" {
			f.cfg.Collector.Postgres.Table = table
		}
	}
}

// StreamOutBatch caps records per sink write and the pause between empty polls.
func StreamOutBatch(maxRecords int, idle time.Duration) StreamOutOption {
	return func(f *Flow) {
		if f == nil {
			return
		}
		if maxRecords > 0 {
			f.cfg.Collector.Policy.MaxBatchSize = maxRecords
		}
		if idle > 0 {
			f.cfg.Collector.Policy.IdleSleep = idle
		}
	}
}

// StreamOutSpool parks batches the sink refuses under dir until the next start.
func StreamOutSpool(dir string, maxBytes int64) StreamOutOption {
	return func(f *Flow) {
		if f == nil || dir == "" {
			return
		}
		if maxBytes < 0 {
			f.fail(fmt.Errorf("spool size must not be negative, got %d", maxBytes))
			return
		}
		if maxBytes == 0 {
			maxBytes = 1 << 30
		}
		f.cfg.Collector.Spool = SpoolConfig{Dir: dir, MaxBytes: maxBytes}
	}
}

// StreamOutSink injects a custom ports.Sink implementation.
func StreamOutSink(s Sink) StreamOutOption {
	return func(f *Flow) {
		if f != nil && s != nil {
			f.appendOptions(WithSink(s))
		}
	}
}

// StreamOutObservability replaces the default observability backend.
func StreamOutObservability(obs Observability) StreamOutOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamOutCallback installs a sink built from a simple callback function.
func StreamOutCallback(name string, fn RecordBatchSink) StreamOutOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithSink(NewCallbackSink(name, fn)))
		}
	}
}

func (f *Flow) fail(err error) {
	if f.err == nil {
		f.err = err
	}
}

func (f *Flow) appendOptions(opts ...CollectorRuntimeOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
