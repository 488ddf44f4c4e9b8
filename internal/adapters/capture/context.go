// Package capture holds the built-in producers of breadcrumbs and events. Each source is
// bound to a Context by the orchestrator and reads everything it needs from it.
package capture

import (
	"fmt"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/ghalamif/AegisPulse/internal/adapters/breadcrumb"
	"github.com/ghalamif/AegisPulse/internal/adapters/dedup"
	"github.com/ghalamif/AegisPulse/internal/adapters/observability"
	"github.com/ghalamif/AegisPulse/internal/domain"
	"github.com/ghalamif/AegisPulse/internal/ports"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Context is what one pipeline initialization publishes to its capture sources.
type Context struct {
	InstanceID  string
	Breadcrumbs *breadcrumb.Store
	Transport   ports.Transport
	Dedup       *dedup.Cache
	Obs         ports.Observability
	Now         func() time.Time
	// MarkFailure flags the current recording session; nil when recording is off.
	MarkFailure func()

	Timings ports.TimingProvider
	Page    ports.PageInspector
	Frames  ports.FrameSource

	RecordInterval time.Duration
	MaxFrames      int
}

// Source is a capture source. Setup binds it to c; Setup(nil) detaches it. Calling Setup
// again with a new context rebinds without duplicating any hook.
type Source interface {
	Capability() domain.Capability
	Setup(c *Context)
}

// Stopper is implemented by sources holding timers or goroutines.
type Stopper interface {
	Stop()
}

func (c *Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Context) obs() ports.Observability {
	if c.Obs != nil {
		return c.Obs
	}
	return observability.Nop{}
}

func (c *Context) send(ev domain.Event) {
	if c.Transport != nil {
		c.Transport.Send(ev)
	}
}

func (c *Context) crumb(typ domain.BreadcrumbType, message string, data map[string]any, level domain.Level) {
	if c.Breadcrumbs == nil {
		return
	}
	c.Breadcrumbs.Add(typ, message, data, level)
	c.obs().IncCounter(observability.BreadcrumbsAddedTotal, 1)
}

func (c *Context) trail() []domain.Breadcrumb {
	if c.Breadcrumbs == nil {
		return []domain.Breadcrumb{}
	}
	return c.Breadcrumbs.All()
}

// shouldReport consults the deduplicator; without one every failure is reported.
func (c *Context) shouldReport(fingerprint string) bool {
	if c.Dedup == nil || c.Dedup.ShouldReport(fingerprint) {
		return true
	}
	c.obs().IncCounter(observability.DedupSuppressedTotal, 1)
	return false
}

func (c *Context) markFailure() {
	if c.MarkFailure != nil {
		c.MarkFailure()
	}
}

// guard recovers a panic raised while a source handles an observation.
func (c *Context) guard(source domain.Capability) {
	if r := recover(); r != nil {
		c.obs().IncCounter(observability.CaptureErrorsTotal, 1)
		c.obs().LogError("capture_source_panic", fmt.Errorf("%v", r), ports.Field{Key: "source", Value: string(source)})
	}
}

type binding struct {
	ctx atomic.Pointer[Context]
}

func (b *binding) Setup(c *Context) { b.ctx.Store(c) }

func (b *binding) current() *Context { return b.ctx.Load() }
