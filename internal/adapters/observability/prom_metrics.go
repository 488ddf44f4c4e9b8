package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ghalamif/AegisPulse/internal/ports"
)

// Metric names shared by the monitor and the collector.
const (
	TransportBeaconTotal   = "pulse_transport_beacon_total"
	TransportStreamTotal   = "pulse_transport_stream_total"
	TransportPixelTotal    = "pulse_transport_pixel_total"
	TransportFailedTotal   = "pulse_transport_failed_total"
	TransportDroppedTotal  = "pulse_transport_dropped_total"
	PayloadBytes           = "pulse_payload_bytes"
	DedupSuppressedTotal   = "pulse_dedup_suppressed_total"
	BreadcrumbsAddedTotal  = "pulse_breadcrumbs_added_total"
	RecordingsFlushedTotal = "pulse_recordings_flushed_total"
	RecordingsDiscarded    = "pulse_recordings_discarded_total"
	RecordingFrames        = "pulse_recording_frames"
	CaptureErrorsTotal     = "pulse_capture_errors_total"

	CollectorIngestedTotal = "pulse_collector_records_ingested_total"
	CollectorRejectedTotal = "pulse_collector_rejected_total"
	CollectorDroppedTotal  = "pulse_collector_queue_dropped_total"
	CollectorQueueLength   = "pulse_collector_queue_length"
	CollectorSinkLatency   = "pulse_collector_sink_latency_seconds"
	CollectorSpooledTotal  = "pulse_collector_spooled_total"
	CollectorReplayedTotal = "pulse_collector_replayed_total"
	CollectorSpoolBytes    = "pulse_collector_spool_bytes"
)

type PromObs struct {
	log      *zap.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the pipeline metrics on reg (a private registry when nil) and logs
// through logger (a production logger when nil).
func NewPromObs(reg prometheus.Registerer, logger *zap.Logger) *PromObs {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if logger == nil {
		logger = DefaultLogger()
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}

	counters := map[string]prometheus.Counter{
		TransportBeaconTotal:   counter(TransportBeaconTotal, "Events handed to the detached beacon primitive."),
		TransportStreamTotal:   counter(TransportStreamTotal, "Events delivered by a streaming POST."),
		TransportPixelTotal:    counter(TransportPixelTotal, "Events delivered by the pixel-probe fallback."),
		TransportFailedTotal:   counter(TransportFailedTotal, "Delivery attempts that failed on some tier."),
		TransportDroppedTotal:  counter(TransportDroppedTotal, "Events dropped without any successful tier."),
		DedupSuppressedTotal:   counter(DedupSuppressedTotal, "Failures suppressed by the dedup window."),
		BreadcrumbsAddedTotal:  counter(BreadcrumbsAddedTotal, "Breadcrumbs appended to the trail."),
		RecordingsFlushedTotal: counter(RecordingsFlushedTotal, "Recording sessions flushed after a failure."),
		RecordingsDiscarded:    counter(RecordingsDiscarded, "Recording sessions discarded at a checkpoint."),
		CaptureErrorsTotal:     counter(CaptureErrorsTotal, "Panics recovered inside capture sources."),
		CollectorIngestedTotal: counter(CollectorIngestedTotal, "Records written to the collector sink."),
		CollectorRejectedTotal: counter(CollectorRejectedTotal, "Requests rejected by the collector."),
		CollectorDroppedTotal:  counter(CollectorDroppedTotal, "Records lost due to queue backpressure policies."),
		CollectorSpooledTotal:  counter(CollectorSpooledTotal, "Records parked on disk after a failed sink write."),
		CollectorReplayedTotal: counter(CollectorReplayedTotal, "Spooled records written to the sink on startup."),
	}
	gauges := map[string]prometheus.Gauge{
		RecordingFrames:      gauge(RecordingFrames, "Frames buffered in the current recording session."),
		CollectorQueueLength: gauge(CollectorQueueLength, "Records buffered in the collector queue."),
		CollectorSpoolBytes:  gauge(CollectorSpoolBytes, "Size of the on-disk spool of undelivered records."),
	}
	payload := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    PayloadBytes,
		Help:    "Serialized size of events handed to the transport.",
		Buckets: prometheus.ExponentialBuckets(256, 2, 12),
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    CollectorSinkLatency,
		Help:    "Latency of collector sink batch writes.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	for _, c := range counters {
		reg.MustRegister(c)
	}
	for _, g := range gauges {
		reg.MustRegister(g)
	}
	reg.MustRegister(payload, latency)

	return &PromObs{
		log:      logger,
		counters: counters,
		gauges:   gauges,
		histos: map[string]prometheus.Observer{
			PayloadBytes:         payload,
			CollectorSinkLatency: latency,
		},
	}
}

// DefaultLogger returns a production zap logger, or a no-op logger if one cannot be built.
func DefaultLogger() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return l.Named("aegispulse")
}

func (p *PromObs) Logger() *zap.Logger { return p.log }

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, zapFields(nil, fields)...)
}

func (p *PromObs) LogWarn(msg string, err error, fields ...ports.Field) {
	p.log.Warn(msg, zapFields(err, fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, zapFields(err, fields)...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) ObserveSize(name string, bytes float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(bytes)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func zapFields(err error, fields []ports.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+1)
	if err != nil {
		out = append(out, zap.Error(err))
	}
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
