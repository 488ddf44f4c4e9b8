package dedup

import (
	"fmt"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/ghalamif/AegisPulse/internal/domain"
)

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock { return &fakeClock{t: time.Unix(1_700_000_000, 0)} }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func TestShouldReportWindow(t *testing.T) {
	clk := newFakeClock()
	c := New(WithClock(clk.Now))

	if !c.ShouldReport("error:boom:") {
		t.Fatalf("first report must pass")
	}
	if c.ShouldReport("error:boom:") {
		t.Fatalf("immediate repeat must be suppressed")
	}

	clk.Advance(999 * time.Millisecond)
	if c.ShouldReport("error:boom:") {
		t.Fatalf("repeat inside the window must be suppressed")
	}

	clk.Advance(time.Millisecond)
	if !c.ShouldReport("error:boom:") {
		t.Fatalf("repeat after 1000ms must pass")
	}
}

func TestSuppressedRepeatKeepsOriginalTimestamp(t *testing.T) {
	clk := newFakeClock()
	c := New(WithClock(clk.Now))

	c.ShouldReport("fp")
	clk.Advance(600 * time.Millisecond)
	c.ShouldReport("fp")
	clk.Advance(600 * time.Millisecond)

	if !c.ShouldReport("fp") {
		t.Fatalf("suppressed call must not refresh the window")
	}
}

func TestFailuresTenMillisApartThenLater(t *testing.T) {
	clk := newFakeClock()
	c := New(WithClock(clk.Now))
	err := domain.ErrorInfo{Message: "x is undefined", Stack: "a\nb\nc\nd"}

	var reported []int
	for i, gap := range []time.Duration{0, 10 * time.Millisecond, 1490 * time.Millisecond} {
		clk.Advance(gap)
		if c.ShouldReport(Fingerprint(err, "error")) {
			reported = append(reported, i)
		}
	}
	if len(reported) != 2 || reported[0] != 0 || reported[1] != 2 {
		t.Fatalf("expected failures 0 and 2 to be reported, got %v", reported)
	}
}

func TestPassivePurge(t *testing.T) {
	clk := newFakeClock()
	c := New(WithClock(clk.Now))

	for i := 0; i < 100; i++ {
		c.ShouldReport(fmt.Sprintf("old-%d", i))
	}
	clk.Advance(5001 * time.Millisecond)
	if c.Len() != 100 {
		t.Fatalf("no purge expected before the cache exceeds 100 entries, got %d", c.Len())
	}

	c.ShouldReport("fresh")
	if c.Len() != 1 {
		t.Fatalf("expected stale entries purged, %d remain", c.Len())
	}
}

func TestFingerprint(t *testing.T) {
	if got := Fingerprint(domain.ErrorInfo{Message: "boom"}, "error"); got != "error:boom:" {
		t.Fatalf("unexpected fingerprint without stack: %q", got)
	}
	if got := Fingerprint("plain", "unhandledrejection"); got != "unhandledrejection:plain:" {
		t.Fatalf("unexpected fingerprint for string: %q", got)
	}
	if got := Fingerprint(domain.ErrorInfo{Message: "m", Stack: "l1\nl2\nl3\nl4"}, "error"); got != "error:m:l1l2l3" {
		t.Fatalf("expected three stack lines, got %q", got)
	}
	if got := Fingerprint(fmt.Errorf("wrapped"), "error"); got != "error:wrapped:" {
		t.Fatalf("unexpected fingerprint for stackless error: %q", got)
	}
}

func TestFingerprintUsesPkgErrorsStack(t *testing.T) {
	a := newStackErr()
	b := newStackErr()

	fa, fb := Fingerprint(a, "error"), Fingerprint(b, "error")
	if fa != fb {
		t.Fatalf("same call site must fingerprint identically:\n%s\n%s", fa, fb)
	}
	if !strings.HasPrefix(fa, "error:stacked:") || len(fa) == len("error:stacked:") {
		t.Fatalf("expected stack segment in fingerprint, got %q", fa)
	}
	if !strings.Contains(fa, "newStackErr") {
		t.Fatalf("expected originating function in fingerprint, got %q", fa)
	}

	wrapped := fmt.Errorf("context: %w", a)
	if got := Fingerprint(wrapped, "error"); !strings.HasSuffix(got, fa[len("error:stacked:"):]) {
		t.Fatalf("wrapped error must keep the inner stack, got %q", got)
	}
}

func newStackErr() error { return pkgerrors.New("stacked") }
