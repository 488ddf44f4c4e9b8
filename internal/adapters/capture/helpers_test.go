package capture

import (
	"sync"
	"time"

	"github.com/ghalamif/AegisPulse/internal/adapters/breadcrumb"
	"github.com/ghalamif/AegisPulse/internal/adapters/dedup"
	"github.com/ghalamif/AegisPulse/internal/domain"
)

type sentEvents struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *sentEvents) Send(ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *sentEvents) all() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Event(nil), s.events...)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type failures struct {
	mu sync.Mutex
	n  int
}

func (f *failures) mark() {
	f.mu.Lock()
	f.n++
	f.mu.Unlock()
}

func (f *failures) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

// newTestContext wires a context around a fixed clock, a fresh store and dedup cache.
func newTestContext() (*Context, *sentEvents, *clock, *failures) {
	clk := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	sent := &sentEvents{}
	fails := &failures{}
	c := &Context{
		InstanceID:  "test",
		Breadcrumbs: breadcrumb.NewStore(breadcrumb.DefaultCapacity).WithClock(clk.Now),
		Transport:   sent,
		Dedup:       dedup.New(dedup.WithClock(clk.Now)),
		Now:         clk.Now,
		MarkFailure: fails.mark,
	}
	return c, sent, clk, fails
}
