package capture

import (
	"strings"
	"sync"
	"time"

	"github.com/ghalamif/AegisPulse/internal/domain"
)

const (
	// ClickDebounce is how long a click waits for a newer one before it is recorded.
	ClickDebounce = 300 * time.Millisecond
	maxClickText  = 100
)

// ClickTarget describes the element a user acted on.
type ClickTarget struct {
	Tag     string
	ID      string
	Classes []string
	Text    string
	Href    string
	X, Y    int
	URL     string
	// Ignore marks elements that must never be recorded.
	Ignore bool
}

// ClickSource turns user actions into click breadcrumbs, keeping only the last action of
// a burst.
type ClickSource struct {
	binding
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func NewClickSource() *ClickSource { return &ClickSource{debounce: ClickDebounce} }

func (*ClickSource) Capability() domain.Capability { return domain.CapabilityClick }

// Click schedules target to be recorded once no newer click arrives within the debounce
// delay.
func (s *ClickSource) Click(target ClickTarget) {
	if target.Ignore || s.current() == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() { s.record(target) })
}

// Stop cancels a pending click.
func (s *ClickSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *ClickSource) record(target ClickTarget) {
	c := s.current()
	if c == nil {
		return
	}
	defer c.guard(domain.CapabilityClick)

	tag := strings.ToLower(target.Tag)
	url := target.URL
	if tag == "a" && target.Href != "" {
		url = target.Href
	}
	data := map[string]any{
		"tagName":   tag,
		"id":        target.ID,
		"className": strings.Join(strings.Fields(strings.Join(target.Classes, " ")), " "),
		"x":         target.X,
		"y":         target.Y,
		"text":      truncateRunes(target.Text, maxClickText),
		"url":       url,
	}
	c.crumb(domain.BreadcrumbClick, clickMessage(tag, target), data, domain.LevelInfo)
}

// clickMessage renders tag#id.firstClass.
func clickMessage(tag string, target ClickTarget) string {
	if tag == "" {
		tag = "element"
	}
	var b strings.Builder
	b.WriteString(tag)
	if target.ID != "" {
		b.WriteString("#" + target.ID)
	}
	for _, class := range target.Classes {
		if class != "" {
			b.WriteString("." + class)
			break
		}
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
