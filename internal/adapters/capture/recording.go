package capture

import (
	"context"
	"sync"

	"github.com/ghalamif/AegisPulse/internal/adapters/recording"
	"github.com/ghalamif/AegisPulse/internal/domain"
)

// RecordingSource runs a recording buffer over the context's frame source. Each setup
// stops the previous buffer before starting a new one.
type RecordingSource struct {
	binding

	mu  sync.Mutex
	buf *recording.Buffer
}

func NewRecordingSource() *RecordingSource { return &RecordingSource{} }

func (*RecordingSource) Capability() domain.Capability { return domain.CapabilityRecordScreen }

func (s *RecordingSource) Setup(c *Context) {
	s.binding.Setup(c)
	s.Stop()
	if c == nil || c.Frames == nil {
		return
	}
	defer c.guard(domain.CapabilityRecordScreen)

	opts := []recording.Option{
		recording.WithInterval(c.RecordInterval),
		recording.WithMaxFrames(c.MaxFrames),
		recording.WithObservability(c.Obs),
	}
	if c.Now != nil {
		opts = append(opts, recording.WithClock(c.Now))
	}
	buf := recording.New(c.Transport, c.Frames, opts...)
	if err := buf.Start(context.Background()); err != nil {
		return
	}
	s.mu.Lock()
	s.buf = buf
	s.mu.Unlock()
}

// MarkFailure flags the session of the running buffer, if any.
func (s *RecordingSource) MarkFailure() {
	if buf := s.Buffer(); buf != nil {
		buf.MarkFailure()
	}
}

// Buffer returns the running buffer, or nil.
func (s *RecordingSource) Buffer() *recording.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf
}

func (s *RecordingSource) Stop() {
	s.mu.Lock()
	buf := s.buf
	s.buf = nil
	s.mu.Unlock()
	if buf != nil {
		if err := buf.Stop(); err != nil {
			if c := s.current(); c != nil {
				c.obs().LogWarn("recording_stop_failed", err)
			}
		}
	}
}

var (
	_ Source  = (*ErrorSource)(nil)
	_ Source  = (*RejectionSource)(nil)
	_ Source  = (*RequestSource)(nil)
	_ Source  = (*ClickSource)(nil)
	_ Source  = (*HistorySource)(nil)
	_ Source  = (*HashSource)(nil)
	_ Source  = (*PerformanceSource)(nil)
	_ Source  = (*BlankPageSource)(nil)
	_ Source  = (*RecordingSource)(nil)
	_ Stopper = (*ClickSource)(nil)
	_ Stopper = (*BlankPageSource)(nil)
	_ Stopper = (*RecordingSource)(nil)
)
