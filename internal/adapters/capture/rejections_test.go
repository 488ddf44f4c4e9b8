package capture

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ghalamif/AegisPulse/internal/domain"
)

func TestGoReportsReturnedError(t *testing.T) {
	c, sent, _, fails := newTestContext()
	src := NewRejectionSource()
	src.Setup(c)

	src.Go(func() error { return errors.New("job failed") })

	require.Eventually(t, func() bool { return len(sent.all()) == 1 }, time.Second, 5*time.Millisecond)
	ev := sent.all()[0]
	require.Equal(t, domain.EventUnhandledRejection, ev["type"])
	detail := ev["error"].(map[string]any)
	require.Equal(t, "job failed", detail["reason"])
	require.Equal(t, "*errors.errorString", detail["name"])
	require.Equal(t, 1, fails.count())
}

func TestGoContainsPanic(t *testing.T) {
	c, sent, _, _ := newTestContext()
	src := NewRejectionSource()
	src.Setup(c)

	src.Go(func() error { panic("worker died") })

	require.Eventually(t, func() bool { return len(sent.all()) == 1 }, time.Second, 5*time.Millisecond)
	detail := sent.all()[0]["error"].(map[string]any)
	require.Equal(t, "panic: worker died", detail["reason"])
	require.NotEqual(t, "No stack trace available", detail["stack"])
}

func TestReportNonErrorReasons(t *testing.T) {
	c, sent, clk, _ := newTestContext()
	src := NewRejectionSource()
	src.Setup(c)

	src.Report("plain reason")
	clk.Advance(2 * time.Second)
	src.Report(map[string]int{"code": 7})

	events := sent.all()
	require.Len(t, events, 2)
	require.Equal(t, "plain reason", events[0]["error"].(map[string]any)["reason"])
	require.Equal(t, `{"code":7}`, events[1]["error"].(map[string]any)["reason"])
	require.Equal(t, "UnhandledRejection", events[1]["error"].(map[string]any)["name"])
}
