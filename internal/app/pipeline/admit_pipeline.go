package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ghalamif/AegisPulse/internal/adapters/observability"
	"github.com/ghalamif/AegisPulse/internal/domain"
	"github.com/ghalamif/AegisPulse/internal/ports"
)

// ErrQueueFull is returned when the ingest queue refused a record under the
// "drop" or "reject" policy.
var ErrQueueFull = errors.New("ingest queue full")

// Admitter returns the function the collector handler uses to hand records to the
// ingest queue. Under "block" it waits for room until ctx is done.
func Admitter(ctx context.Context, q ports.RecordQueue, pol ports.Policy, obs ports.Observability) func(*domain.Record) error {
	return func(r *domain.Record) error {
		err := enqueueWithPolicy(ctx, q, r, pol, obs)
		if err != nil {
			obs.IncCounter(observability.CollectorDroppedTotal, 1)
		}
		obs.SetGauge(observability.CollectorQueueLength, float64(q.Len()))
		return err
	}
}

func enqueueWithPolicy(ctx context.Context, q ports.RecordQueue, r *domain.Record, pol ports.Policy, obs ports.Observability) error {
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		if ok := q.Enqueue(r); ok {
			return nil
		}

		switch pol.OnQueueFull {
		case "block":
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleep):
			}
		case "drop", "reject":
			obs.LogWarn("queue_full_drop", fmt.Errorf("queue length exceeded capacity %d", pol.MaxQueueLen))
			return ErrQueueFull
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return fmt.Errorf("invalid queue policy %q", pol.OnQueueFull)
		}
	}
}
