package recording

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ghalamif/AegisPulse/internal/adapters/observability"
	"github.com/ghalamif/AegisPulse/internal/domain"
	"github.com/ghalamif/AegisPulse/internal/ports"
)

// DefaultInterval is the checkpoint period when none is configured.
const DefaultInterval = 10 * time.Second

// Option customizes a Buffer.
type Option func(*Buffer)

func WithInterval(d time.Duration) Option {
	return func(b *Buffer) {
		if d > 0 {
			b.interval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Buffer) {
		if now != nil {
			b.now = now
		}
	}
}

// WithIDGenerator replaces the UUIDv4 session id generator.
func WithIDGenerator(gen func() string) Option {
	return func(b *Buffer) {
		if gen != nil {
			b.newID = gen
		}
	}
}

// WithMaxFrames caps frames held per session; the oldest are dropped. Zero means unbounded.
func WithMaxFrames(n int) Option {
	return func(b *Buffer) {
		if n >= 0 {
			b.maxFrames = n
		}
	}
}

func WithObservability(obs ports.Observability) Option {
	return func(b *Buffer) {
		if obs != nil {
			b.obs = obs
		}
	}
}

// Buffer accumulates replay frames and, at every checkpoint, either ships them (when a
// failure was marked during the window) or throws them away.
type Buffer struct {
	transport ports.Transport
	source    ports.FrameSource
	interval  time.Duration
	now       func() time.Time
	newID     func() string
	maxFrames int
	obs       ports.Observability

	mu      sync.Mutex
	session domain.RecordingSession
	running bool
	stop    chan struct{}
	done    chan struct{}
}

func New(t ports.Transport, source ports.FrameSource, opts ...Option) *Buffer {
	b := &Buffer{
		transport: t,
		source:    source,
		interval:  DefaultInterval,
		now:       time.Now,
		newID:     uuid.NewString,
		obs:       observability.Nop{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	b.session = domain.RecordingSession{ID: b.newID()}
	return b
}

// Start opens a new session unless the current one is still empty, starts frame capture
// and schedules checkpoints until ctx is done or Stop is called. Starting a running buffer
// is a no-op.
func (b *Buffer) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return nil
	}
	if len(b.session.Frames) > 0 || b.session.Failure {
		b.session = domain.RecordingSession{ID: b.newID()}
	}
	b.running = true
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	stop, done := b.stop, b.done
	b.mu.Unlock()

	if b.source != nil {
		if err := b.source.Start(b.append); err != nil {
			b.obs.LogWarn("recording_source_start_failed", err)
			b.mu.Lock()
			b.running = false
			b.mu.Unlock()
			close(done)
			return fmt.Errorf("start frame source: %w", err)
		}
	}

	go b.loop(ctx, stop, done)
	b.obs.LogInfo("recording_started", ports.Field{Key: "interval", Value: b.interval.String()})
	return nil
}

func (b *Buffer) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			b.Checkpoint()
		}
	}
}

// Stop halts frame capture and future checkpoints. A checkpoint already running completes
// before Stop returns.
func (b *Buffer) Stop() error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	close(b.stop)
	done := b.done
	b.mu.Unlock()

	var err error
	if b.source != nil {
		err = b.source.Stop()
	}
	<-done
	return err
}

// MarkFailure flags the current session so the next checkpoint flushes it.
func (b *Buffer) MarkFailure() {
	b.mu.Lock()
	b.session.Failure = true
	b.mu.Unlock()
}

// SessionID returns the id of the session currently collecting frames.
func (b *Buffer) SessionID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session.ID
}

// Len reports frames held by the current session.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.session.Frames)
}

func (b *Buffer) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

func (b *Buffer) append(f domain.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session.Frames = append(b.session.Frames, f)
	if b.maxFrames > 0 && len(b.session.Frames) > b.maxFrames {
		over := len(b.session.Frames) - b.maxFrames
		b.session.Frames = append(b.session.Frames[:0], b.session.Frames[over:]...)
	}
	b.obs.SetGauge(observability.RecordingFrames, float64(len(b.session.Frames)))
}

// Checkpoint closes the current session and opens a fresh one. A flagged session is
// encoded and sent; an unflagged one is discarded.
func (b *Buffer) Checkpoint() {
	b.mu.Lock()
	closed := b.session
	b.session = domain.RecordingSession{ID: b.newID()}
	b.mu.Unlock()

	b.obs.SetGauge(observability.RecordingFrames, 0)
	if !closed.Failure {
		b.obs.IncCounter(observability.RecordingsDiscarded, 1)
		return
	}

	payload, err := Encode(closed.Frames)
	if err != nil {
		b.obs.LogWarn("recording_encode_failed", err, ports.Field{Key: "session", Value: closed.ID})
		return
	}
	if b.transport != nil {
		b.transport.Send(domain.Event{
			"type":           domain.EventRecordScreen,
			"recordScreenId": closed.ID,
			"time":           b.now().UnixMilli(),
			"status":         "ok",
			"events":         payload,
		})
	}
	b.obs.IncCounter(observability.RecordingsFlushedTotal, 1)
}
