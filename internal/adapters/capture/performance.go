package capture

import (
	"math"
	"sync"

	"github.com/ghalamif/AegisPulse/internal/domain"
)

// PerformanceSource sends one page-load timing event per process.
type PerformanceSource struct {
	binding
	once sync.Once
}

func NewPerformanceSource() *PerformanceSource { return &PerformanceSource{} }

func (*PerformanceSource) Capability() domain.Capability { return domain.CapabilityPerformance }

func (s *PerformanceSource) Setup(c *Context) {
	s.binding.Setup(c)
	if c == nil || c.Timings == nil {
		return
	}
	s.once.Do(func() { s.collect(c) })
}

func (s *PerformanceSource) collect(c *Context) {
	defer c.guard(domain.CapabilityPerformance)
	t, ok := c.Timings.Timings()
	if !ok {
		return
	}
	c.send(domain.Event{
		"type":      domain.EventPerformance,
		"metrics":   Metrics(t),
		"url":       t.URL,
		"timestamp": domain.Timestamp(c.now()),
	})
}

// Metrics derives the reported durations (ms) from raw navigation marks.
func Metrics(t domain.NavigationTiming) map[string]float64 {
	ssl := 0.0
	if t.SecureConnectionStart > 0 {
		ssl = t.ConnectEnd - t.SecureConnectionStart
	}
	return map[string]float64{
		"dns":                  t.DomainLookupEnd - t.DomainLookupStart,
		"tcp":                  t.ConnectEnd - t.ConnectStart,
		"ssl":                  ssl,
		"ttfb":                 t.ResponseStart - t.RequestStart,
		"response":             t.ResponseEnd - t.ResponseStart,
		"domParse":             t.DOMInteractive - t.ResponseEnd,
		"domContentLoaded":     t.DOMContentLoadedEventEnd - t.DOMContentLoadedEventStart,
		"domComplete":          t.DOMComplete - t.DOMContentLoadedEventStart,
		"load":                 t.LoadEventEnd - t.FetchStart,
		"firstPaint":           math.Round(t.FirstPaint),
		"firstContentfulPaint": math.Round(t.FirstContentfulPaint),
		"lcp":                  math.Round(t.LargestContentfulPaint),
	}
}
