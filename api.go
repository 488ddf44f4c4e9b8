package aegispulse

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	base "github.com/ghalamif/AegisPulse/pkg/aegispulse"
)

// Re-exported errors for convenience.
var (
	ErrQueueFull         = base.ErrQueueFull
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import github.com/ghalamif/AegisPulse directly.
type (
	Config                 = base.Config
	MonitorConfig          = base.MonitorConfig
	TransportConfig        = base.TransportConfig
	CollectorConfig        = base.CollectorConfig
	PostgresConfig         = base.PostgresConfig
	RateLimitConfig        = base.RateLimitConfig
	MetricsConfig          = base.MetricsConfig
	Policy                 = base.Policy
	Monitor                = base.Monitor
	MonitorOption          = base.MonitorOption
	Flow                   = base.Flow
	FlowOption             = base.FlowOption
	StreamInOption         = base.StreamInOption
	StreamOutOption        = base.StreamOutOption
	CollectorRuntime       = base.CollectorRuntime
	CollectorRuntimeOption = base.CollectorRuntimeOption
	Record                 = base.Record
	RecordBatchSink        = base.RecordBatchSink
	Sink                   = base.Sink
	RecordQueue            = base.RecordQueue
	Spool                  = base.Spool
	Observability          = base.Observability
	Field                  = base.Field
	Capabilities           = base.Capabilities
	StaticCapabilities     = base.StaticCapabilities
	FrameSource            = base.FrameSource
	TimingProvider         = base.TimingProvider
	PageInspector          = base.PageInspector
	Event                  = base.Event
	Frame                  = base.Frame
	SpoolConfig            = base.SpoolConfig
	Breadcrumb             = base.Breadcrumb
	BreadcrumbType         = base.BreadcrumbType
	Level                  = base.Level
	ClickTarget            = base.ClickTarget
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Monitor and options.
func NewMonitor(opts ...MonitorOption) *Monitor {
	return base.NewMonitor(opts...)
}

func WithCapabilities(c Capabilities) MonitorOption {
	return base.WithCapabilities(c)
}

func WithFrameSource(f FrameSource) MonitorOption {
	return base.WithFrameSource(f)
}

func WithTimingProvider(p TimingProvider) MonitorOption {
	return base.WithTimingProvider(p)
}

func WithPageInspector(p PageInspector) MonitorOption {
	return base.WithPageInspector(p)
}

func WithInitialHash(hash string) MonitorOption {
	return base.WithInitialHash(hash)
}

func WithMonitorObservability(obs Observability) MonitorOption {
	return base.WithMonitorObservability(obs)
}

func WithHTTPClient(c *http.Client) MonitorOption {
	return base.WithHTTPClient(c)
}

func WithLogger(l *zap.Logger) MonitorOption {
	return base.WithLogger(l)
}

func WithClock(now func() time.Time) MonitorOption {
	return base.WithClock(now)
}

// Event payload helpers.
func Timestamp(t time.Time) string {
	return base.Timestamp(t)
}

func DecodeRecording(payload string) ([]Frame, error) {
	return base.DecodeRecording(payload)
}

func EncodeRecording(frames []Frame) (string, error) {
	return base.EncodeRecording(frames)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...CollectorRuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInListen(addr, path string) StreamInOption {
	return base.StreamInListen(addr, path)
}

func StreamInRateLimit(perSecond, trackedIPs int) StreamInOption {
	return base.StreamInRateLimit(perSecond, trackedIPs)
}

func StreamInBackpressure(onFull string, maxQueued int) StreamInOption {
	return base.StreamInBackpressure(onFull, maxQueued)
}

func StreamInQueue(q RecordQueue) StreamInOption {
	return base.StreamInQueue(q)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutPostgres(connString, table string) StreamOutOption {
	return base.StreamOutPostgres(connString, table)
}

func StreamOutBatch(maxRecords int, idle time.Duration) StreamOutOption {
	return base.StreamOutBatch(maxRecords, idle)
}

func StreamOutSpool(dir string, maxBytes int64) StreamOutOption {
	return base.StreamOutSpool(dir, maxBytes)
}

func StreamOutSink(s Sink) StreamOutOption {
	return base.StreamOutSink(s)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

func StreamOutCallback(name string, fn RecordBatchSink) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Collector runtime and options.
func NewCollectorRuntime(cfg *Config, opts ...CollectorRuntimeOption) (*CollectorRuntime, error) {
	return base.NewCollectorRuntime(cfg, opts...)
}

func WithSink(s Sink) CollectorRuntimeOption {
	return base.WithSink(s)
}

func WithRecordQueue(q RecordQueue) CollectorRuntimeOption {
	return base.WithRecordQueue(q)
}

func WithSpool(s Spool) CollectorRuntimeOption {
	return base.WithSpool(s)
}

func WithObservability(obs Observability) CollectorRuntimeOption {
	return base.WithObservability(obs)
}

// Sink adapters.
func NewCallbackSink(name string, fn RecordBatchSink) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan []Record, func()) {
	return base.NewChannelSink(name, buffer)
}
