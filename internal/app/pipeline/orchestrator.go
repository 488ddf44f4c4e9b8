package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ghalamif/AegisPulse/internal/adapters/breadcrumb"
	"github.com/ghalamif/AegisPulse/internal/adapters/capture"
	"github.com/ghalamif/AegisPulse/internal/adapters/dedup"
	"github.com/ghalamif/AegisPulse/internal/adapters/observability"
	"github.com/ghalamif/AegisPulse/internal/adapters/transport"
	"github.com/ghalamif/AegisPulse/internal/app/config"
	"github.com/ghalamif/AegisPulse/internal/domain"
	"github.com/ghalamif/AegisPulse/internal/ports"
)

// Host carries what the orchestrator needs from the embedding process. Every field is
// optional.
type Host struct {
	// Capabilities defaults to net/http backed delivery primitives.
	Capabilities ports.Capabilities
	HTTPClient   *http.Client
	Frames       ports.FrameSource
	Timings      ports.TimingProvider
	Page         ports.PageInspector
	// InitialHash is the fragment the host was opened with.
	InitialHash string
	// Obs defaults to Prometheus metrics on a private registry logging through Logger.
	Obs ports.Observability
	// Logger defaults to a production zap logger on stderr. Ignored when Obs is set.
	Logger *zap.Logger
	Now    func() time.Time
}

// Orchestrator owns one pipeline instance: its breadcrumb trail, dedup cache, published
// transport and capture sources. Instances share nothing.
type Orchestrator struct {
	id    string
	host  Host
	obs   ports.Observability
	store *breadcrumb.Store
	dedup *dedup.Cache

	mu        sync.Mutex
	caps      ports.Capabilities
	published atomic.Pointer[capture.Context]
	transport atomic.Pointer[transport.Transport]

	errors     *capture.ErrorSource
	rejections *capture.RejectionSource
	xhr        *capture.RequestSource
	fetch      *capture.RequestSource
	clicks     *capture.ClickSource
	hash       *capture.HashSource
	history    *capture.HistorySource
	perf       *capture.PerformanceSource
	blank      *capture.BlankPageSource
	recording  *capture.RecordingSource
	sources    []capture.Source
}

func NewOrchestrator(host Host) *Orchestrator {
	obs := host.Obs
	if obs == nil {
		obs = observability.NewPromObs(nil, host.Logger)
	}
	now := host.Now
	if now == nil {
		now = time.Now
	}
	host.Now = now

	o := &Orchestrator{
		id:         uuid.NewString(),
		host:       host,
		obs:        obs,
		store:      breadcrumb.NewStore(breadcrumb.DefaultCapacity).WithClock(now),
		dedup:      dedup.New(dedup.WithClock(now)),
		errors:     capture.NewErrorSource(),
		rejections: capture.NewRejectionSource(),
		xhr:        capture.NewXHRSource(),
		fetch:      capture.NewFetchSource(),
		clicks:     capture.NewClickSource(),
		hash:       capture.NewHashSource(host.InitialHash),
		history:    capture.NewHistorySource(),
		perf:       capture.NewPerformanceSource(),
		blank:      capture.NewBlankPageSource(),
		recording:  capture.NewRecordingSource(),
	}
	o.sources = []capture.Source{
		o.errors, o.rejections, o.xhr, o.fetch, o.clicks,
		o.hash, o.history, o.perf, o.blank, o.recording,
	}
	return o
}

// InstanceID identifies this pipeline instance.
func (o *Orchestrator) InstanceID() string { return o.id }

// Init (re)configures the pipeline: it resets the breadcrumb trail, binds a new transport
// to the configured collector, publishes a fresh capture context and sets up every source
// that is not silenced. Invalid settings fall back to defaults; Init never fails.
func (o *Orchestrator) Init(cfg config.MonitorConfig) {
	defer o.recoverPanic("init")
	cfg.ApplyDefaults()
	for _, name := range cfg.UnknownSilent() {
		o.obs.LogWarn("unknown_silent_capability", nil, ports.Field{Key: "capability", Value: string(name)})
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.store.Clear()
	o.store.Configure(cfg.MaxBreadcrumbs)

	if o.caps == nil {
		o.caps = o.host.Capabilities
		if o.caps == nil {
			o.caps = transport.NewHTTPCapabilities(o.host.HTTPClient, transport.HTTPOptions{
				MaxInFlight: cfg.Transport.MaxInFlight,
				Timeout:     cfg.Transport.Timeout,
			})
		}
	}
	tr := transport.New(transport.Identity{
		DSN:    cfg.DSN,
		APIKey: cfg.APIKey,
		UserID: cfg.UserID,
	}, o.caps, o.obs, transport.WithTimeout(cfg.Transport.Timeout))
	o.transport.Store(tr)

	c := &capture.Context{
		InstanceID:     o.id,
		Breadcrumbs:    o.store,
		Transport:      tr,
		Dedup:          o.dedup,
		Obs:            o.obs,
		Now:            o.host.Now,
		Timings:        o.host.Timings,
		Page:           o.host.Page,
		Frames:         o.host.Frames,
		RecordInterval: cfg.RecordInterval(),
		MaxFrames:      cfg.MaxFrames,
	}
	if cfg.Enabled(domain.CapabilityRecordScreen) {
		c.MarkFailure = o.recording.MarkFailure
	}
	o.published.Store(c)

	for _, src := range o.sources {
		if cfg.Enabled(src.Capability()) {
			o.setup(src, c)
			continue
		}
		o.setup(src, nil)
		if s, ok := src.(capture.Stopper); ok {
			s.Stop()
		}
	}
	o.obs.LogInfo("pipeline_initialized",
		ports.Field{Key: "instance", Value: o.id},
		ports.Field{Key: "dsn", Value: cfg.DSN},
		ports.Field{Key: "max_breadcrumbs", Value: cfg.MaxBreadcrumbs},
	)
}

func (o *Orchestrator) setup(src capture.Source, c *capture.Context) {
	defer o.recoverPanic("setup_" + string(src.Capability()))
	src.Setup(c)
}

// AddCustomEvent appends a breadcrumb on behalf of the host application.
func (o *Orchestrator) AddCustomEvent(typ domain.BreadcrumbType, message string, data map[string]any, level domain.Level) {
	defer o.recoverPanic("add_custom_event")
	o.store.Add(typ, message, data, level)
	o.obs.IncCounter(observability.BreadcrumbsAddedTotal, 1)
}

// Breadcrumbs returns a copy of the trail, oldest first.
func (o *Orchestrator) Breadcrumbs() []domain.Breadcrumb { return o.store.All() }

func (o *Orchestrator) ClearBreadcrumbs() { o.store.Clear() }

// Transport returns the transport published by the last Init, or nil before the first.
func (o *Orchestrator) Transport() *transport.Transport { return o.transport.Load() }

// Context returns the capture context published by the last Init, or nil.
func (o *Orchestrator) Context() *capture.Context { return o.published.Load() }

// MarkFailure flags the current recording session.
func (o *Orchestrator) MarkFailure() { o.recording.MarkFailure() }

func (o *Orchestrator) Errors() *capture.ErrorSource         { return o.errors }
func (o *Orchestrator) Rejections() *capture.RejectionSource { return o.rejections }
func (o *Orchestrator) Fetch() *capture.RequestSource        { return o.fetch }
func (o *Orchestrator) XHR() *capture.RequestSource          { return o.xhr }
func (o *Orchestrator) Clicks() *capture.ClickSource         { return o.clicks }
func (o *Orchestrator) Hash() *capture.HashSource            { return o.hash }
func (o *Orchestrator) History() *capture.HistorySource      { return o.history }
func (o *Orchestrator) Recording() *capture.RecordingSource  { return o.recording }

// Shutdown detaches every source, stops recording and waits for in-flight deliveries
// until ctx is done.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	for _, src := range o.sources {
		o.setup(src, nil)
		if s, ok := src.(capture.Stopper); ok {
			s.Stop()
		}
	}
	o.published.Store(nil)
	tr := o.transport.Load()
	o.mu.Unlock()

	if tr == nil {
		return nil
	}
	if err := tr.Flush(ctx); err != nil {
		return fmt.Errorf("flush transport: %w", err)
	}
	return nil
}

func (o *Orchestrator) recoverPanic(op string) {
	if r := recover(); r != nil {
		o.obs.IncCounter(observability.CaptureErrorsTotal, 1)
		o.obs.LogError("pipeline_panic", fmt.Errorf("%v", r), ports.Field{Key: "op", Value: op})
	}
}
