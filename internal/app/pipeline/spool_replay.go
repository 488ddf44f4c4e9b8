package pipeline

import (
	"fmt"

	"github.com/ghalamif/AegisPulse/internal/adapters/observability"
	"github.com/ghalamif/AegisPulse/internal/domain"
	"github.com/ghalamif/AegisPulse/internal/ports"
)

// ReplaySpool writes every uncommitted spooled record to sink in policy-sized batches,
// committing after each batch. It stops at the first sink failure and leaves the rest
// for the next start.
func ReplaySpool(spool ports.Spool, sink ports.Sink, pol ports.Policy, obs ports.Observability) (int, error) {
	stats := spool.Stats()
	if stats.LatestAppended == 0 || stats.OldestUncommitted > stats.LatestAppended {
		return 0, nil
	}

	type entry struct {
		id ports.SpoolEntryID
		r  *domain.Record
	}
	var pending []entry
	err := spool.Iterate(stats.OldestUncommitted, func(id ports.SpoolEntryID, r *domain.Record) error {
		pending = append(pending, entry{id: id, r: r})
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("read spool: %w", err)
	}

	size := pol.MaxBatchSize
	if size <= 0 {
		size = len(pending)
	}

	var replayed int
	for start := 0; start < len(pending); start += size {
		end := start + size
		if end > len(pending) {
			end = len(pending)
		}
		batch := make([]*domain.Record, 0, end-start)
		for _, e := range pending[start:end] {
			batch = append(batch, e.r)
		}
		if err := sink.WriteBatch(batch); err != nil {
			return replayed, fmt.Errorf("replay into %s: %w", sink.Name(), err)
		}
		if err := spool.Commit(pending[end-1].id); err != nil {
			return replayed, fmt.Errorf("commit spool: %w", err)
		}
		replayed += len(batch)
		obs.IncCounter(observability.CollectorReplayedTotal, float64(len(batch)))
	}

	obs.SetGauge(observability.CollectorSpoolBytes, float64(spool.Stats().SizeBytes))
	if replayed > 0 {
		obs.LogInfo("spool_replay_complete",
			ports.Field{Key: "records", Value: replayed},
			ports.Field{Key: "from_id", Value: stats.OldestUncommitted})
	}
	return replayed, nil
}
