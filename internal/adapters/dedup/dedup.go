package dedup

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/ghalamif/AegisPulse/internal/domain"
)

const (
	// Window is how long an identical failure is suppressed after being reported.
	Window = time.Second
	// purgeThreshold is the cache size above which stale entries are collected.
	purgeThreshold = 100
	// purgeAge is the age past which an entry is collected.
	purgeAge = 5 * time.Second
	// stackLines is how many stack lines participate in a fingerprint.
	stackLines = 3
)

// Cache suppresses repeated reports of the same failure within Window.
type Cache struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
	now    func() time.Time
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithWindow overrides the suppression window.
func WithWindow(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.window = d
		}
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		seen:   make(map[string]time.Time),
		window: Window,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// ShouldReport records the fingerprint and returns true unless it was seen within the window.
func (c *Cache) ShouldReport(fingerprint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if last, ok := c.seen[fingerprint]; ok && now.Sub(last) < c.window {
		return false
	}
	c.seen[fingerprint] = now

	if len(c.seen) > purgeThreshold {
		for key, at := range c.seen {
			if now.Sub(at) > purgeAge {
				delete(c.seen, key)
			}
		}
	}
	return true
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// Fingerprint builds "category:message:trace" where trace is the first three stack lines.
func Fingerprint(v any, category string) string {
	message, stack := describe(v)
	return category + ":" + message + ":" + firstLines(stack, stackLines)
}

func describe(v any) (message, stack string) {
	switch val := v.(type) {
	case nil:
		return "<nil>", ""
	case domain.ErrorInfo:
		return val.Message, val.Stack
	case *domain.ErrorInfo:
		if val == nil {
			return "<nil>", ""
		}
		return val.Message, val.Stack
	case error:
		return val.Error(), Stack(val)
	case string:
		return val, ""
	default:
		return fmt.Sprint(val), ""
	}
}

// Trace returns the innermost pkg/errors stack trace recorded on err, or nil.
func Trace(err error) pkgerrors.StackTrace {
	var st stackTracer
	for e := err; e != nil; e = errors.Unwrap(e) {
		if t, ok := e.(stackTracer); ok {
			st = t
		}
	}
	if st == nil {
		return nil
	}
	return st.StackTrace()
}

// Stack returns the innermost stack trace recorded on err, formatted one frame part per line.
func Stack(err error) string {
	trace := Trace(err)
	if len(trace) == 0 {
		return ""
	}
	return strings.TrimPrefix(fmt.Sprintf("%+v", trace), "\n")
}

func firstLines(s string, n int) string {
	if s == "" {
		return ""
	}
	lines := strings.SplitN(s, "\n", n+1)
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "")
}
