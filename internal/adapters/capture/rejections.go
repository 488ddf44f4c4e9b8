package capture

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"github.com/ghalamif/AegisPulse/internal/adapters/dedup"
	"github.com/ghalamif/AegisPulse/internal/domain"
)

// RejectionSource reports failures of background work nobody waits on.
type RejectionSource struct {
	binding
}

func NewRejectionSource() *RejectionSource { return &RejectionSource{} }

func (*RejectionSource) Capability() domain.Capability {
	return domain.CapabilityUnhandledRejection
}

// Go runs fn in its own goroutine. A returned error or a panic is reported as an
// unhandled rejection; the panic does not propagate.
func (s *RejectionSource) Go(fn func() error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok {
					s.Report(pkgerrors.WithStack(err))
					return
				}
				s.Report(pkgerrors.Errorf("panic: %v", r))
			}
		}()
		if err := fn(); err != nil {
			s.Report(err)
		}
	}()
}

// Report sends reason as an unhandled rejection. Reason may be any value.
func (s *RejectionSource) Report(reason any) {
	c := s.current()
	if c == nil {
		return
	}
	defer c.guard(domain.CapabilityUnhandledRejection)

	if !c.shouldReport(dedup.Fingerprint(reason, string(domain.CapabilityUnhandledRejection))) {
		return
	}
	c.markFailure()

	detail := map[string]any{
		"reason":         "Unknown rejection",
		"name":           "UnhandledRejection",
		"stack":          "No stack trace available",
		"originalReason": reason,
	}
	switch r := reason.(type) {
	case nil:
	case error:
		info := errorDetails(r)
		detail["reason"] = info.Message
		detail["name"] = info.Name
		detail["stack"] = info.Stack
		detail["originalReason"] = info
	case string:
		detail["reason"] = r
	case fmt.Stringer:
		detail["reason"] = r.String()
		detail["originalReason"] = r.String()
	default:
		if b, err := json.Marshal(r); err == nil {
			detail["reason"] = string(b)
		} else {
			detail["reason"] = fmt.Sprint(r)
			detail["originalReason"] = fmt.Sprint(r)
		}
	}

	c.send(domain.Event{
		"type":        domain.EventUnhandledRejection,
		"error":       detail,
		"breadcrumbs": c.trail(),
		"timestamp":   domain.Timestamp(c.now()),
	})
}
