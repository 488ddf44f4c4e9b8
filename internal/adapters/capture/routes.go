package capture

import (
	"sync"

	"github.com/ghalamif/AegisPulse/internal/domain"
)

// Navigator is the history primitive wrapped by the history source.
type Navigator interface {
	Location() string
	Push(to string) error
	Replace(to string) error
}

// HistorySource records navigations made through a wrapped Navigator.
type HistorySource struct {
	binding

	mu       sync.Mutex
	location string
}

func NewHistorySource() *HistorySource { return &HistorySource{} }

func (*HistorySource) Capability() domain.Capability { return domain.CapabilityHistory }

// WrapNavigator returns nav decorated with route capture. A nil nav is returned as is.
func (s *HistorySource) WrapNavigator(nav Navigator) Navigator {
	if nav == nil {
		return nil
	}
	s.mu.Lock()
	if s.location == "" {
		s.location = nav.Location()
	}
	s.mu.Unlock()
	return &trackedNavigator{nav: nav, src: s}
}

// Back records a navigation the host performed on its own, such as a back button.
func (s *HistorySource) Back(to string) { s.navigated("pop", to) }

func (s *HistorySource) navigated(method, to string) {
	s.mu.Lock()
	from := s.location
	s.location = to
	s.mu.Unlock()

	c := s.current()
	if c == nil {
		return
	}
	defer c.guard(domain.CapabilityHistory)
	c.crumb(domain.BreadcrumbRoute, "router_"+method+"_"+from+" -> "+to, map[string]any{
		"method": method,
		"from":   from,
		"to":     to,
		"url":    to,
	}, domain.LevelInfo)
}

type trackedNavigator struct {
	nav Navigator
	src *HistorySource
}

func (t *trackedNavigator) Location() string { return t.nav.Location() }

func (t *trackedNavigator) Push(to string) error {
	if err := t.nav.Push(to); err != nil {
		return err
	}
	t.src.navigated("push", t.nav.Location())
	return nil
}

func (t *trackedNavigator) Replace(to string) error {
	if err := t.nav.Replace(to); err != nil {
		return err
	}
	t.src.navigated("replace", t.nav.Location())
	return nil
}

// HashSource records fragment changes.
type HashSource struct {
	binding
	initial string

	mu   sync.Mutex
	last string
}

// NewHashSource starts from the fragment the host was opened with; a non-empty one is
// recorded on the first setup.
func NewHashSource(initial string) *HashSource {
	return &HashSource{initial: initial, last: initial}
}

func (*HashSource) Capability() domain.Capability { return domain.CapabilityHashChange }

func (s *HashSource) Setup(c *Context) {
	s.binding.Setup(c)
	if c == nil {
		return
	}
	s.mu.Lock()
	initial := s.initial
	s.initial = ""
	s.mu.Unlock()
	if initial != "" {
		s.record(c, "", initial)
	}
}

// HashChange records a move to hash.
func (s *HashSource) HashChange(hash string) {
	s.mu.Lock()
	from := s.last
	s.last = hash
	s.mu.Unlock()

	if c := s.current(); c != nil {
		s.record(c, from, hash)
	}
}

func (s *HashSource) record(c *Context, from, to string) {
	defer c.guard(domain.CapabilityHashChange)
	c.crumb(domain.BreadcrumbRoute, "router_"+from+" -> "+to, map[string]any{
		"from": from,
		"to":   to,
	}, domain.LevelInfo)
}
