package capture

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/AegisPulse/internal/domain"
)

func TestMetricsFromNavigationTiming(t *testing.T) {
	got := Metrics(domain.NavigationTiming{
		FetchStart:                 2,
		DomainLookupStart:          5,
		DomainLookupEnd:            15,
		ConnectStart:               15,
		SecureConnectionStart:      25,
		ConnectEnd:                 40,
		RequestStart:               41,
		ResponseStart:              90,
		ResponseEnd:                120,
		DOMInteractive:             300,
		DOMContentLoadedEventStart: 310,
		DOMContentLoadedEventEnd:   330,
		DOMComplete:                500,
		LoadEventEnd:               520,
		FirstPaint:                 210.4,
		FirstContentfulPaint:       230.6,
		LargestContentfulPaint:     480.5,
	})
	want := map[string]float64{
		"dns": 10, "tcp": 25, "ssl": 15, "ttfb": 49, "response": 30, "domParse": 180,
		"domContentLoaded": 20, "domComplete": 190, "load": 518,
		"firstPaint": 210, "firstContentfulPaint": 231, "lcp": 481,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestPerformanceSourceSendsOnce(t *testing.T) {
	c, sent, _, _ := newTestContext()
	c.Timings = staticTimings{t: domain.NavigationTiming{URL: "app://main"}, ok: true}
	src := NewPerformanceSource()
	src.Setup(c)
	src.Setup(c)

	events := sent.all()
	require.Len(t, events, 1)
	require.Equal(t, domain.EventPerformance, events[0]["type"])
	require.Equal(t, "app://main", events[0]["url"])
	require.Equal(t, 0.0, events[0]["metrics"].(map[string]float64)["ssl"])
}

func TestPerformanceSourceWithoutTimings(t *testing.T) {
	c, sent, _, _ := newTestContext()
	c.Timings = staticTimings{}
	NewPerformanceSource().Setup(c)
	require.Empty(t, sent.all())
}

type staticTimings struct {
	t  domain.NavigationTiming
	ok bool
}

func (s staticTimings) Timings() (domain.NavigationTiming, bool) { return s.t, s.ok }
