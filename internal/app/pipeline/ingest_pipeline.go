package pipeline

import (
	"context"
	"time"

	"github.com/ghalamif/AegisPulse/internal/adapters/observability"
	"github.com/ghalamif/AegisPulse/internal/domain"
	"github.com/ghalamif/AegisPulse/internal/ports"
)

// RunIngestPipeline moves records from q to sink in batches until ctx is done, then
// drains what is left. A batch the sink refuses is parked in spool when one is given,
// and dropped otherwise.
func RunIngestPipeline(ctx context.Context, q ports.RecordQueue, sink ports.Sink, spool ports.Spool, pol ports.Policy, obs ports.Observability) {
	idle := pol.IdleSleep
	if idle <= 0 {
		idle = 5 * time.Millisecond
	}

	for {
		batch := q.DequeueBatch(pol.MaxBatchSize)
		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				drain(q, sink, spool, pol, obs)
				return
			case <-time.After(idle):
			}
			continue
		}
		writeBatch(sink, spool, batch, obs)
		obs.SetGauge(observability.CollectorQueueLength, float64(q.Len()))
	}
}

func drain(q ports.RecordQueue, sink ports.Sink, spool ports.Spool, pol ports.Policy, obs ports.Observability) {
	for {
		batch := q.DequeueBatch(pol.MaxBatchSize)
		if len(batch) == 0 {
			obs.SetGauge(observability.CollectorQueueLength, 0)
			return
		}
		writeBatch(sink, spool, batch, obs)
	}
}

func writeBatch(sink ports.Sink, spool ports.Spool, batch []*domain.Record, obs ports.Observability) {
	start := time.Now()
	if err := sink.WriteBatch(batch); err != nil {
		obs.LogError("sink_write_failed", err,
			ports.Field{Key: "sink", Value: sink.Name()},
			ports.Field{Key: "records", Value: len(batch)},
			ports.Field{Key: "spooled", Value: spool != nil},
		)
		if spool != nil {
			spoolBatch(spool, batch, obs)
		}
		return
	}
	obs.ObserveLatency(observability.CollectorSinkLatency, time.Since(start).Seconds())
	obs.IncCounter(observability.CollectorIngestedTotal, float64(len(batch)))
}

func spoolBatch(spool ports.Spool, batch []*domain.Record, obs ports.Observability) {
	if _, err := spool.Append(batch...); err != nil {
		obs.IncCounter(observability.CollectorDroppedTotal, float64(len(batch)))
		obs.LogError("spool_append_failed", err, ports.Field{Key: "records", Value: len(batch)})
		return
	}
	obs.IncCounter(observability.CollectorSpooledTotal, float64(len(batch)))
	obs.SetGauge(observability.CollectorSpoolBytes, float64(spool.Stats().SizeBytes))
}
