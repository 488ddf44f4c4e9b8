package aegispulse

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func testConfig() *Config {
	return &Config{
		Collector: CollectorConfig{
			Addr: "127.0.0.1:0",
			Path: "/tracking",
			Policy: Policy{
				MaxQueueLen:  8,
				MaxBatchSize: 4,
				IdleSleep:    time.Millisecond,
				OnQueueFull:  "drop",
			},
			RateLimit: RateLimitConfig{EventLimit: 100, IPLimit: 16},
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:0"},
	}
}

func TestNewCollectorRuntimeWithCustomAdapters(t *testing.T) {
	queueStub := &stubQueue{}
	sinkStub := &stubSink{}
	obsStub := &stubObservability{}

	rt, err := NewCollectorRuntime(
		testConfig(),
		WithSink(sinkStub),
		WithRecordQueue(queueStub),
		WithObservability(obsStub),
	)
	if err != nil {
		t.Fatalf("NewCollectorRuntime returned error: %v", err)
	}

	if rt.sink != sinkStub {
		t.Fatalf("expected custom sink to be used")
	}
	if rt.queue != queueStub {
		t.Fatalf("expected custom queue to be used")
	}
	if rt.obs != obsStub {
		t.Fatalf("expected custom observability to be used")
	}
	if rt.db != nil {
		t.Fatalf("expected db to be nil when custom sink is provided")
	}
}

func TestNewCollectorRuntimeNeedsPostgresWithoutSink(t *testing.T) {
	if _, err := NewCollectorRuntime(testConfig(), WithObservability(&stubObservability{})); err == nil {
		t.Fatalf("expected error without conn_string or custom sink")
	}
	if _, err := NewCollectorRuntime(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestCollectorRuntimeServesTrackingAndMetrics(t *testing.T) {
	sink, batches, closeBatches := NewChannelSink("test", 4)
	defer closeBatches()

	reg := prometheus.NewRegistry()
	rt, err := NewCollectorRuntime(testConfig(), WithSink(sink), WithRegistry(reg))
	if err != nil {
		t.Fatalf("NewCollectorRuntime returned error: %v", err)
	}
	if err := rt.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	defer func() {
		if err := rt.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown returned error: %v", err)
		}
	}()

	base := "http://" + rt.Addr().String()
	body := `{"apikey":"app-1","type":"error","message":"boom","lineno":3}`
	resp, err := http.Post(base+"/tracking", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	select {
	case batch := <-batches:
		if len(batch) != 1 {
			t.Fatalf("expected one record, got %d", len(batch))
		}
		got := batch[0]
		if got.AppID != "app-1" || got.EventType != "error" || got.Message != "boom" {
			t.Fatalf("unexpected record: %+v", got)
		}
		if !strings.Contains(string(got.Info), `"lineno":3`) {
			t.Fatalf("expected remaining fields in info, got %s", got.Info)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ingested batch")
	}

	metrics := "http://" + rt.MetricsAddr().String()
	resp, err = http.Get(metrics + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(raw), "pulse_collector_records_ingested_total") {
		t.Fatalf("expected collector metrics, got:\n%s", raw)
	}

	resp, err = http.Get(metrics + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", resp.StatusCode)
	}
}

func TestCollectorRuntimeStartTwice(t *testing.T) {
	rt, err := NewCollectorRuntime(testConfig(), WithSink(&stubSink{}), WithObservability(&stubObservability{}))
	if err != nil {
		t.Fatalf("NewCollectorRuntime returned error: %v", err)
	}
	if err := rt.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer rt.Shutdown(context.Background())
	if err := rt.Start(); err == nil {
		t.Fatalf("expected second Start to fail")
	}
}

type stubSink struct{}

func (s *stubSink) WriteBatch(records []*PipelineRecord) error { return nil }
func (s *stubSink) Name() string                               { return "stub" }

type stubQueue struct{}

func (s *stubQueue) Enqueue(r *PipelineRecord) bool         { return true }
func (s *stubQueue) DequeueBatch(max int) []*PipelineRecord { return nil }
func (s *stubQueue) Len() int                               { return 0 }

type stubObservability struct{}

func (s *stubObservability) LogInfo(string, ...Field)         {}
func (s *stubObservability) LogWarn(string, error, ...Field)  {}
func (s *stubObservability) LogError(string, error, ...Field) {}
func (s *stubObservability) IncCounter(string, float64)       {}
func (s *stubObservability) ObserveLatency(string, float64)   {}
func (s *stubObservability) ObserveSize(string, float64)      {}
func (s *stubObservability) SetGauge(string, float64)         {}

type flakySink struct {
	mu      sync.Mutex
	down    bool
	written []*PipelineRecord
}

func (s *flakySink) WriteBatch(records []*PipelineRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return errors.New("sink down")
	}
	s.written = append(s.written, records...)
	return nil
}

func (s *flakySink) Name() string { return "flaky" }

func (s *flakySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.written)
}

func TestCollectorRuntimeReplaysSpoolOnStart(t *testing.T) {
	cfg := testConfig()
	cfg.Collector.Spool = SpoolConfig{Dir: t.TempDir()}

	down := &flakySink{down: true}
	rt, err := NewCollectorRuntime(cfg, WithSink(down), WithObservability(&stubObservability{}))
	if err != nil {
		t.Fatalf("NewCollectorRuntime returned error: %v", err)
	}
	if err := rt.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	resp, err := http.Post("http://"+rt.Addr().String()+"/tracking", "application/json",
		bytes.NewBufferString(`{"apikey":"app-1","type":"error","message":"lost?"}`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}

	up := &flakySink{}
	cfg2 := testConfig()
	cfg2.Collector.Spool = cfg.Collector.Spool
	rt2, err := NewCollectorRuntime(cfg2, WithSink(up), WithObservability(&stubObservability{}))
	if err != nil {
		t.Fatalf("NewCollectorRuntime returned error: %v", err)
	}
	if err := rt2.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer rt2.Shutdown(context.Background())

	if up.count() != 1 {
		t.Fatalf("expected the spooled record to be replayed before serving, got %d", up.count())
	}
	if got := up.written[0]; got.AppID != "app-1" || got.Message == nil || *got.Message != "lost?" {
		t.Fatalf("unexpected replayed record: %+v", got)
	}
}
