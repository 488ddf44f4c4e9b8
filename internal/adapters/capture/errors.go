package capture

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/ghalamif/AegisPulse/internal/adapters/dedup"
	"github.com/ghalamif/AegisPulse/internal/domain"
)

const maxStackTrace = 10

// ErrorSource reports failures of the host as "error" events.
type ErrorSource struct {
	binding
}

func NewErrorSource() *ErrorSource { return &ErrorSource{} }

func (*ErrorSource) Capability() domain.Capability { return domain.CapabilityError }

// CaptureError reports err unless an identical failure was reported within the dedup
// window.
func (s *ErrorSource) CaptureError(err error) {
	if err == nil {
		return
	}
	s.report(err, errorDetails(err))
}

// CaptureInfo reports a failure relayed as plain fields, for example from an embedded
// script runtime. The fingerprint uses the fields as given; defaults only fill the payload.
func (s *ErrorSource) CaptureInfo(info domain.ErrorInfo) {
	display := info
	if display.Name == "" {
		display.Name = "Error"
	}
	if display.Stack == "" {
		display.Stack = "No stack trace available"
	}
	s.report(info, display)
}

// Recover reports a panic in flight and re-panics. It must be deferred directly:
//
//	defer errs.Recover()
func (s *ErrorSource) Recover() {
	r := recover()
	if r == nil {
		return
	}
	err, ok := r.(error)
	if !ok {
		err = fmt.Errorf("panic: %v", r)
	}
	if dedup.Trace(err) == nil {
		err = withPanicStack(err)
	}
	s.CaptureError(err)
	panic(r)
}

// panicError carries the stack of the panicking goroutine starting at the panic site.
type panicError struct {
	error
	stack []uintptr
}

// withPanicStack records the caller stack minus Recover itself and the runtime frames
// that run deferred calls.
func withPanicStack(err error) error {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	pcs = pcs[:n]
	for len(pcs) > 0 {
		fn := runtime.FuncForPC(pcs[0] - 1)
		if fn == nil || !strings.HasPrefix(fn.Name(), "runtime.") {
			break
		}
		pcs = pcs[1:]
	}
	return &panicError{error: err, stack: pcs}
}

func (p *panicError) Cause() error  { return p.error }
func (p *panicError) Unwrap() error { return p.error }

func (p *panicError) StackTrace() pkgerrors.StackTrace {
	st := make(pkgerrors.StackTrace, len(p.stack))
	for i, pc := range p.stack {
		st[i] = pkgerrors.Frame(pc)
	}
	return st
}

func (s *ErrorSource) report(v any, info domain.ErrorInfo) {
	c := s.current()
	if c == nil {
		return
	}
	defer c.guard(domain.CapabilityError)

	if !c.shouldReport(dedup.Fingerprint(v, string(domain.CapabilityError))) {
		return
	}
	c.markFailure()

	detail := map[string]any{
		"message": info.Message,
		"error":   info,
	}
	if lines := strings.Split(info.Stack, "\n"); info.Stack != "" {
		if len(lines) > maxStackTrace {
			lines = lines[:maxStackTrace]
		}
		detail["stackTrace"] = lines
	}
	if err, ok := v.(error); ok {
		if trace := dedup.Trace(err); len(trace) > 0 {
			detail["filename"] = fmt.Sprintf("%s", trace[0])
			if line, err := strconv.Atoi(fmt.Sprintf("%d", trace[0])); err == nil {
				detail["lineno"] = line
			}
			detail["function"] = fmt.Sprintf("%n", trace[0])
		}
	}

	c.send(domain.Event{
		"type":        domain.EventError,
		"error":       detail,
		"breadcrumbs": c.trail(),
		"timestamp":   domain.Timestamp(c.now()),
	})
}

func errorDetails(err error) domain.ErrorInfo {
	stack := dedup.Stack(err)
	if stack == "" {
		stack = "No stack trace available"
	}
	return domain.ErrorInfo{
		Message: err.Error(),
		Stack:   stack,
		Name:    errorName(err),
	}
}

// errorName is the dynamic type of the root cause, e.g. "*fs.PathError".
func errorName(err error) string {
	return fmt.Sprintf("%T", pkgerrors.Cause(err))
}
