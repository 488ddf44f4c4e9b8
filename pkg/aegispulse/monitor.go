package aegispulse

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ghalamif/AegisPulse/internal/adapters/capture"
	"github.com/ghalamif/AegisPulse/internal/adapters/recording"
	"github.com/ghalamif/AegisPulse/internal/adapters/transport"
	"github.com/ghalamif/AegisPulse/internal/app/pipeline"
	"github.com/ghalamif/AegisPulse/internal/domain"
)

type (
	ErrorSource        = capture.ErrorSource
	RejectionSource    = capture.RejectionSource
	RequestSource      = capture.RequestSource
	ClickSource        = capture.ClickSource
	ClickTarget        = capture.ClickTarget
	HashSource         = capture.HashSource
	HistorySource      = capture.HistorySource
	Navigator          = capture.Navigator
	RecordingSource    = capture.RecordingSource
	StaticCapabilities = transport.Static
)

// MonitorOption customizes the host primitives a Monitor runs on.
type MonitorOption func(*pipeline.Host)

// WithCapabilities replaces the net/http delivery primitives.
func WithCapabilities(c Capabilities) MonitorOption {
	return func(h *pipeline.Host) {
		h.Capabilities = c
	}
}

// WithHTTPClient sets the client used by the default delivery primitives.
func WithHTTPClient(c *http.Client) MonitorOption {
	return func(h *pipeline.Host) {
		h.HTTPClient = c
	}
}

// WithFrameSource plugs in the replay capture primitive used by session recording.
func WithFrameSource(f FrameSource) MonitorOption {
	return func(h *pipeline.Host) {
		h.Frames = f
	}
}

// WithTimingProvider exposes navigation timings to the performance source.
func WithTimingProvider(p TimingProvider) MonitorOption {
	return func(h *pipeline.Host) {
		h.Timings = p
	}
}

// WithPageInspector enables the blank-page check.
func WithPageInspector(p PageInspector) MonitorOption {
	return func(h *pipeline.Host) {
		h.Page = p
	}
}

// WithInitialHash records the fragment the host was opened with.
func WithInitialHash(hash string) MonitorOption {
	return func(h *pipeline.Host) {
		h.InitialHash = hash
	}
}

// WithMonitorObservability plugs in a custom observability backend.
func WithMonitorObservability(obs Observability) MonitorOption {
	return func(h *pipeline.Host) {
		h.Obs = obs
	}
}

// WithLogger sets the zap logger behind the default observability backend.
func WithLogger(l *zap.Logger) MonitorOption {
	return func(h *pipeline.Host) {
		h.Logger = l
	}
}

// WithClock overrides the wall clock, mostly for tests.
func WithClock(now func() time.Time) MonitorOption {
	return func(h *pipeline.Host) {
		h.Now = now
	}
}

// Monitor is one self-contained telemetry pipeline instance. Hosts call Init with a
// MonitorConfig and then feed failures, requests, clicks and navigations through the
// capture sources it exposes.
type Monitor struct {
	o *pipeline.Orchestrator
}

func NewMonitor(opts ...MonitorOption) *Monitor {
	var host pipeline.Host
	for _, opt := range opts {
		if opt != nil {
			opt(&host)
		}
	}
	return &Monitor{o: pipeline.NewOrchestrator(host)}
}

// Init (re)configures the monitor. It never fails; invalid settings fall back to defaults.
func (m *Monitor) Init(cfg MonitorConfig) { m.o.Init(cfg) }

// AddCustomEvent appends a breadcrumb on behalf of the host application.
func (m *Monitor) AddCustomEvent(typ BreadcrumbType, message string, data map[string]any, level Level) {
	m.o.AddCustomEvent(typ, message, data, level)
}

// Breadcrumbs returns a copy of the trail, oldest first.
func (m *Monitor) Breadcrumbs() []Breadcrumb { return m.o.Breadcrumbs() }

func (m *Monitor) ClearBreadcrumbs() { m.o.ClearBreadcrumbs() }

// Send delivers a raw event through the transport bound by the last Init. It reports
// false before the first Init.
func (m *Monitor) Send(ev Event) bool {
	tr := m.o.Transport()
	if tr == nil {
		return false
	}
	tr.Send(ev)
	return true
}

// MarkFailure flags the current recording session so its next checkpoint is flushed.
func (m *Monitor) MarkFailure() { m.o.MarkFailure() }

func (m *Monitor) InstanceID() string { return m.o.InstanceID() }

func (m *Monitor) Errors() *ErrorSource         { return m.o.Errors() }
func (m *Monitor) Rejections() *RejectionSource { return m.o.Rejections() }
func (m *Monitor) Fetch() *RequestSource        { return m.o.Fetch() }
func (m *Monitor) XHR() *RequestSource          { return m.o.XHR() }
func (m *Monitor) Clicks() *ClickSource         { return m.o.Clicks() }
func (m *Monitor) Hash() *HashSource            { return m.o.Hash() }
func (m *Monitor) History() *HistorySource      { return m.o.History() }
func (m *Monitor) Recording() *RecordingSource  { return m.o.Recording() }

// Shutdown detaches every capture source and waits for in-flight deliveries.
func (m *Monitor) Shutdown(ctx context.Context) error { return m.o.Shutdown(ctx) }

// Timestamp renders t the way event payloads carry it.
func Timestamp(t time.Time) string { return domain.Timestamp(t) }

// DecodeRecording turns the events field of a record-screen payload back into frames.
func DecodeRecording(payload string) ([]Frame, error) { return recording.DecodeFrames(payload) }

// EncodeRecording is the inverse of DecodeRecording.
func EncodeRecording(frames []Frame) (string, error) { return recording.Encode(frames) }
