package breadcrumb

import (
	"sync"
	"time"

	"github.com/ghalamif/AegisPulse/internal/domain"
)

// DefaultCapacity is used when no positive capacity is configured.
const DefaultCapacity = 20

// Store is a bounded trail of breadcrumbs that evicts the oldest entries first.
type Store struct {
	mu   sync.Mutex
	data []domain.Breadcrumb
	cap  int
	now  func() time.Time
}

func NewStore(capacity int) *Store {
	s := &Store{now: time.Now}
	s.Configure(capacity)
	return s
}

// WithClock replaces the time source used to stamp breadcrumbs.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.mu.Lock()
		s.now = now
		s.mu.Unlock()
	}
	return s
}

// Configure sets the capacity. Existing history is trimmed on the next Add, not here.
func (s *Store) Configure(capacity int) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s.mu.Lock()
	s.cap = capacity
	s.mu.Unlock()
}

func (s *Store) Add(typ domain.BreadcrumbType, message string, data map[string]any, level domain.Level) {
	if level == "" {
		level = domain.LevelInfo
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b := domain.Breadcrumb{
		Type:      typ,
		Message:   message,
		Data:      data,
		Timestamp: s.now().UnixMilli(),
		Level:     level,
	}
	s.data = append(s.data, b.Clone())
	if over := len(s.data) - s.cap; over > 0 {
		clear(s.data[:over])
		s.data = append(s.data[:0], s.data[over:]...)
	}
}

// All returns a copy of the trail, oldest first.
func (s *Store) All() []domain.Breadcrumb {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Breadcrumb, len(s.data))
	for i, b := range s.data {
		out[i] = b.Clone()
	}
	return out
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *Store) Cap() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cap
}
