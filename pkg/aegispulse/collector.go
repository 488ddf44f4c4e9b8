package aegispulse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ghalamif/AegisPulse/internal/adapters/collector"
	"github.com/ghalamif/AegisPulse/internal/adapters/observability"
	"github.com/ghalamif/AegisPulse/internal/adapters/queue"
	"github.com/ghalamif/AegisPulse/internal/adapters/sink"
	"github.com/ghalamif/AegisPulse/internal/adapters/spool"
	"github.com/ghalamif/AegisPulse/internal/app/pipeline"
	"github.com/ghalamif/AegisPulse/internal/ports"
)

// ErrQueueFull indicates the collector queue refused a record according to policy.
var ErrQueueFull = pipeline.ErrQueueFull

// CollectorRuntimeOption customizes the dependencies used by CollectorRuntime.
type CollectorRuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	sink          Sink
	queue         RecordQueue
	spool         Spool
	observability Observability
	registry      *prometheus.Registry
}

// WithSink injects a custom sink so records can be sent to any database or API.
func WithSink(s Sink) CollectorRuntimeOption {
	return func(o *runtimeOverrides) {
		o.sink = s
	}
}

// WithRecordQueue injects a custom queue implementation.
func WithRecordQueue(q RecordQueue) CollectorRuntimeOption {
	return func(o *runtimeOverrides) {
		o.queue = q
	}
}

// WithSpool parks refused batches in a caller-provided spool instead of the
// configured directory.
func WithSpool(s Spool) CollectorRuntimeOption {
	return func(o *runtimeOverrides) {
		o.spool = s
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) CollectorRuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithRegistry registers the default metrics on reg and serves reg on /metrics.
func WithRegistry(reg *prometheus.Registry) CollectorRuntimeOption {
	return func(o *runtimeOverrides) {
		o.registry = reg
	}
}

// CollectorRuntime wires up the HTTP handler → queue → sink pipeline and exposes
// simple lifecycle hooks for embedding the reference collector inside any Go service.
type CollectorRuntime struct {
	cfg      *Config
	policy   ports.Policy
	obs      ports.Observability
	registry *prometheus.Registry
	queue    ports.RecordQueue
	limiter  *collector.RateLimiter
	sink     ports.Sink
	spool    ports.Spool
	ownSpool bool
	db       *sql.DB

	mu         sync.Mutex
	cancel     context.CancelFunc
	group      *errgroup.Group
	failed     <-chan struct{}
	done       chan struct{}
	runErr     error
	httpSrv    *http.Server
	metricsSrv *http.Server
	httpAddr   net.Addr
	metricAddr net.Addr
}

// NewCollectorRuntime bootstraps the default adapters (in-memory queue, Postgres sink,
// file spool when configured, Prometheus observability). CollectorRuntimeOption values
// override any of them.
func NewCollectorRuntime(cfg *Config, opts ...CollectorRuntimeOption) (*CollectorRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg.ApplyDefaults()

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	reg := overrides.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs(reg, nil)
	}

	q := overrides.queue
	if q == nil {
		q = queue.NewMemQueue(cfg.Collector.Policy.MaxQueueLen)
	}

	limiter, err := collector.NewRateLimiter(cfg.Collector.RateLimit.IPLimit, cfg.Collector.RateLimit.EventLimit)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var (
		db  *sql.DB
		snk ports.Sink
	)
	if overrides.sink != nil {
		snk = overrides.sink
	} else {
		if err := cfg.ValidateCollector(); err != nil {
			return nil, err
		}
		db, err = sql.Open("postgres", cfg.Collector.Postgres.ConnString)
		if err != nil {
			return nil, err
		}
		snk = sink.NewPostgresSink(db, cfg.Collector.Postgres.Table)
	}

	sp, ownSpool := overrides.spool, false
	if sp == nil && cfg.Collector.Spool.Dir != "" {
		fs, err := spool.Open(cfg.Collector.Spool.Dir, cfg.Collector.Spool.MaxBytes)
		if err != nil {
			if db != nil {
				_ = db.Close()
			}
			return nil, fmt.Errorf("open spool: %w", err)
		}
		sp, ownSpool = fs, true
	}

	return &CollectorRuntime{
		cfg:      cfg,
		policy:   cfg.Collector.Policy,
		obs:      obs,
		registry: reg,
		queue:    q,
		limiter:  limiter,
		sink:     snk,
		spool:    sp,
		ownSpool: ownSpool,
		db:       db,
	}, nil
}

// Start replays any spooled records, binds the collector and metrics listeners and
// launches the ingest loop. It returns immediately; call Run to block on a context instead.
func (c *CollectorRuntime) Start() error {
	if c == nil {
		return fmt.Errorf("collector runtime is nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.group != nil {
		return fmt.Errorf("collector runtime already started")
	}

	if c.spool != nil {
		if _, err := pipeline.ReplaySpool(c.spool, c.sink, c.policy, c.obs); err != nil {
			c.obs.LogWarn("spool_replay_incomplete", err, ports.Field{Key: "sink", Value: c.sink.Name()})
		}
	}

	httpLn, err := net.Listen("tcp", c.cfg.Collector.Addr)
	if err != nil {
		return fmt.Errorf("listen collector: %w", err)
	}
	metricsLn, err := net.Listen("tcp", c.cfg.Metrics.Addr)
	if err != nil {
		_ = httpLn.Close()
		return fmt.Errorf("listen metrics: %w", err)
	}
	c.httpAddr = httpLn.Addr()
	c.metricAddr = metricsLn.Addr()

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	c.cancel = cancel
	c.group = g
	c.failed = gctx.Done()
	c.done = make(chan struct{})

	admit := pipeline.Admitter(gctx, c.queue, c.policy, c.obs)
	mux := http.NewServeMux()
	mux.Handle(c.cfg.Collector.Path, collector.NewHandler(admit, c.limiter, c.obs))
	c.httpSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	c.metricsSrv = &http.Server{Handler: c.metricsMux(), ReadHeaderTimeout: 10 * time.Second}

	g.Go(func() error { return serve(c.httpSrv, httpLn) })
	g.Go(func() error { return serve(c.metricsSrv, metricsLn) })
	g.Go(func() error {
		pipeline.RunIngestPipeline(gctx, c.queue, c.sink, c.spool, c.policy, c.obs)
		return nil
	})
	g.Go(func() error {
		c.recordQueueGauge(gctx, time.Second)
		return nil
	})
	go func() {
		err := g.Wait()
		c.mu.Lock()
		c.runErr = err
		c.mu.Unlock()
		close(c.done)
	}()

	c.obs.LogInfo("collector_started",
		ports.Field{Key: "addr", Value: c.httpAddr.String()},
		ports.Field{Key: "path", Value: c.cfg.Collector.Path},
		ports.Field{Key: "metrics_addr", Value: c.metricAddr.String()},
		ports.Field{Key: "sink", Value: c.sink.Name()},
	)
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled or a
// server fails. It then attempts a graceful shutdown.
func (c *CollectorRuntime) Run(ctx context.Context) error {
	if err := c.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-c.failed:
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.Shutdown(shutdownCtx)

	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.Join(c.runErr, err)
}

// Shutdown stops accepting requests, drains the queue into the sink and closes the DB
// connection.
func (c *CollectorRuntime) Shutdown(ctx context.Context) error {
	var errs []error

	c.mu.Lock()
	httpSrv, metricsSrv, cancel, done := c.httpSrv, c.metricsSrv, c.cancel, c.done
	c.mu.Unlock()

	if httpSrv != nil {
		if err := httpSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("wait for ingest: %w", ctx.Err()))
		}
	}

	if c.ownSpool {
		if err := c.spool.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Addr is the bound collector address, or nil before Start.
func (c *CollectorRuntime) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.httpAddr
}

// MetricsAddr is the bound metrics address, or nil before Start.
func (c *CollectorRuntime) MetricsAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metricAddr
}

func (c *CollectorRuntime) metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (c *CollectorRuntime) recordQueueGauge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.obs.SetGauge(observability.CollectorQueueLength, float64(c.queue.Len()))
			if c.spool != nil {
				c.obs.SetGauge(observability.CollectorSpoolBytes, float64(c.spool.Stats().SizeBytes))
			}
		}
	}
}

func serve(srv *http.Server, ln net.Listener) error {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
