package capture

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ghalamif/AegisPulse/internal/domain"
)

// BlankPageDelay gives the host time to render before the page is inspected.
const BlankPageDelay = 2 * time.Second

var (
	rgbPattern = regexp.MustCompile(`rgba?\((\d+),\s*(\d+),\s*(\d+)`)

	skeletonClasses = []string{
		"skeleton", "skeleton-screen", "skeleton-loading",
		"loading-skeleton", "shimmer", "shimmer-loading",
	}
	skeletonAttrs    = []string{"data-skeleton", "data-loading", "data-placeholder"}
	skeletonKeywords = []string{"skeleton", "shimmer", "loading", "pulse"}
)

// BlankPageSource inspects the rendered page once after BlankPageDelay and reports it
// when it looks blank.
type BlankPageSource struct {
	binding
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func NewBlankPageSource() *BlankPageSource { return &BlankPageSource{delay: BlankPageDelay} }

func (*BlankPageSource) Capability() domain.Capability { return domain.CapabilityWhiteScreen }

func (s *BlankPageSource) Setup(c *Context) {
	s.binding.Setup(c)
	s.Stop()
	if c == nil || c.Page == nil {
		return
	}
	s.mu.Lock()
	s.timer = time.AfterFunc(s.delay, func() { s.inspect(c) })
	s.mu.Unlock()
}

func (s *BlankPageSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *BlankPageSource) inspect(c *Context) {
	defer c.guard(domain.CapabilityWhiteScreen)
	snap, ok := c.Page.Snapshot()
	if !ok {
		return
	}
	skeleton := IsSkeleton(snap)
	if !IsBlank(snap, skeleton) {
		return
	}
	c.send(domain.Event{
		"type":            domain.EventBlankPage,
		"isBlank":         true,
		"isSkeleton":      skeleton,
		"viewportWidth":   snap.ViewportWidth,
		"viewportHeight":  snap.ViewportHeight,
		"elementCount":    snap.ElementCount,
		"hasText":         snap.HasText,
		"hasImages":       snap.HasImages,
		"backgroundColor": snap.BackgroundColor,
		"url":             snap.URL,
		"timestamp":       domain.Timestamp(c.now()),
	})
}

// IsBlank reports a white page with little content that is not a loading skeleton.
func IsBlank(snap domain.PageSnapshot, skeleton bool) bool {
	sparse := snap.ElementCount < 10 || !snap.HasText || !snap.HasImages
	return isWhite(snap.BackgroundColor) && sparse && !skeleton
}

// IsSkeleton detects placeholder markup shown while content loads.
func IsSkeleton(snap domain.PageSnapshot) bool {
	for _, class := range snap.ClassNames {
		for _, s := range skeletonClasses {
			if class == s {
				return true
			}
		}
	}
	for _, attr := range snap.DataAttributes {
		for _, s := range skeletonAttrs {
			if attr == s {
				return true
			}
		}
	}

	gray := 0
	for i, bg := range snap.ElementBackgrounds {
		if i >= 20 {
			break
		}
		if r, g, b, ok := parseRGB(bg); ok && abs(r-g) < 20 && abs(g-b) < 20 && r > 200 && r < 250 {
			gray++
		}
	}
	if gray >= 3 {
		return true
	}

	for _, rule := range snap.Animations {
		rule = strings.ToLower(rule)
		for _, kw := range skeletonKeywords {
			if strings.Contains(rule, kw) {
				return true
			}
		}
	}
	return false
}

func isWhite(color string) bool {
	c := strings.ToLower(strings.TrimSpace(color))
	switch c {
	case "", "transparent", "rgba(0, 0, 0, 0)":
		return false
	case "white", "#fff", "#ffffff":
		return true
	}
	if strings.HasPrefix(c, "rgba(255, 255, 255") {
		return true
	}
	r, g, b, ok := parseRGB(c)
	return ok && r > 240 && g > 240 && b > 240
}

func parseRGB(color string) (r, g, b int, ok bool) {
	m := rgbPattern.FindStringSubmatch(color)
	if m == nil {
		return 0, 0, 0, false
	}
	r, _ = strconv.Atoi(m[1])
	g, _ = strconv.Atoi(m[2])
	b, _ = strconv.Atoi(m[3])
	return r, g, b, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
