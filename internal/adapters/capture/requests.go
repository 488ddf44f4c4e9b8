package capture

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ghalamif/AegisPulse/internal/domain"
)

// Doer is the client-side primitive wrapped by the legacy request source.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestSource observes outgoing HTTP calls made through primitives it decorated.
// The fetch variant decorates http.RoundTripper, the xhr variant decorates a Doer.
type RequestSource struct {
	binding
	capability domain.Capability
	crumb      domain.BreadcrumbType
	eventType  string
}

func NewFetchSource() *RequestSource {
	return &RequestSource{
		capability: domain.CapabilityFetch,
		crumb:      domain.BreadcrumbRequestModern,
		eventType:  domain.EventFetchRequest,
	}
}

func NewXHRSource() *RequestSource {
	return &RequestSource{
		capability: domain.CapabilityXHR,
		crumb:      domain.BreadcrumbRequestLegacy,
		eventType:  domain.EventXHRRequest,
	}
}

func (s *RequestSource) Capability() domain.Capability { return s.capability }

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// WrapRoundTripper returns rt decorated with request capture. A nil rt means
// http.DefaultTransport.
func (s *RequestSource) WrapRoundTripper(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := rt.RoundTrip(req)
		s.observe(req, resp, err, time.Since(start))
		return resp, err
	})
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

// WrapDoer returns d decorated with request capture.
func (s *RequestSource) WrapDoer(d Doer) Doer {
	if d == nil {
		d = http.DefaultClient
	}
	return doerFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := d.Do(req)
		s.observe(req, resp, err, time.Since(start))
		return resp, err
	})
}

func (s *RequestSource) observe(req *http.Request, resp *http.Response, err error, elapsed time.Duration) {
	c := s.current()
	if c == nil || req == nil {
		return
	}
	defer c.guard(s.capability)

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := ""
	if req.URL != nil {
		target = req.URL.String()
	}
	ev := domain.Event{
		"type":      s.eventType,
		"method":    method,
		"url":       target,
		"duration":  elapsed.Milliseconds(),
		"timestamp": domain.Timestamp(c.now()),
	}
	data := map[string]any{"method": method, "url": target, "duration": elapsed.Milliseconds()}
	level := domain.LevelInfo
	message := method + " " + target

	switch {
	case err != nil:
		ev["success"] = false
		ev["error"] = err.Error()
		data["error"] = err.Error()
		level = domain.LevelError
		message += " failed"
	case resp != nil:
		ev["success"] = resp.StatusCode >= 200 && resp.StatusCode < 300
		ev["status"] = resp.StatusCode
		ev["statusText"] = http.StatusText(resp.StatusCode)
		data["status"] = resp.StatusCode
		if resp.StatusCode >= http.StatusBadRequest {
			level = domain.LevelWarning
		}
		message += fmt.Sprintf(" %d", resp.StatusCode)
	}

	c.crumb(s.crumb, message, data, level)
	c.send(ev)
}
