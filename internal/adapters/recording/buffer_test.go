package recording

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ghalamif/AegisPulse/internal/domain"
)

func TestCheckpointWithoutFailureDiscards(t *testing.T) {
	tr := &fakeTransport{}
	src := &fakeSource{}
	b := New(tr, src, WithInterval(time.Hour), WithIDGenerator(sequentialIDs()))
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	src.emit(`{"t":1}`)
	src.emit(`{"t":2}`)
	require.Equal(t, 2, b.Len())

	b.Checkpoint()

	require.Empty(t, tr.all())
	require.Zero(t, b.Len())
	require.Equal(t, "s2", b.SessionID())
}

func TestCheckpointWithFailureFlushesOnce(t *testing.T) {
	tr := &fakeTransport{}
	src := &fakeSource{}
	now := time.UnixMilli(1_700_000_000_000)
	b := New(tr, src,
		WithInterval(time.Hour),
		WithIDGenerator(sequentialIDs()),
		WithClock(func() time.Time { return now }),
	)
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	src.emit(`{"t":1}`)
	b.MarkFailure()
	src.emit(`{"t":2}`)
	b.Checkpoint()

	events := tr.all()
	require.Len(t, events, 1)
	ev := events[0]
	require.Equal(t, domain.EventRecordScreen, ev["type"])
	require.Equal(t, "s1", ev["recordScreenId"])
	require.Equal(t, now.UnixMilli(), ev["time"])
	require.Equal(t, "ok", ev["status"])

	frames, err := DecodeFrames(ev["events"].(string))
	require.NoError(t, err)
	require.Equal(t, []domain.Frame{domain.Frame(`{"t":1}`), domain.Frame(`{"t":2}`)}, frames)

	// flag and frames were reset with the new session
	require.Zero(t, b.Len())
	b.Checkpoint()
	require.Len(t, tr.all(), 1)
}

func TestFailureAfterCheckpointBelongsToNextSession(t *testing.T) {
	tr := &fakeTransport{}
	b := New(tr, nil, WithIDGenerator(sequentialIDs()))

	b.MarkFailure()
	b.Checkpoint()
	b.MarkFailure()
	b.Checkpoint()

	events := tr.all()
	require.Len(t, events, 2)
	require.Equal(t, "s1", events[0]["recordScreenId"])
	require.Equal(t, "s2", events[1]["recordScreenId"])
}

func TestMaxFramesDropsOldest(t *testing.T) {
	src := &fakeSource{}
	b := New(&fakeTransport{}, src, WithInterval(time.Hour), WithMaxFrames(3))
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	for i := 0; i < 5; i++ {
		src.emit(fmt.Sprintf(`{"t":%d}`, i))
	}
	require.Equal(t, 3, b.Len())
}

func TestTickerDrivesCheckpoints(t *testing.T) {
	tr := &fakeTransport{}
	src := &fakeSource{}
	b := New(tr, src, WithInterval(10*time.Millisecond))
	require.NoError(t, b.Start(context.Background()))

	src.emit(`{"t":1}`)
	b.MarkFailure()
	require.Eventually(t, func() bool { return len(tr.all()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Stop())
	require.True(t, src.stopped())
	require.False(t, b.Running())
}

func TestStopHaltsCheckpoints(t *testing.T) {
	tr := &fakeTransport{}
	b := New(tr, &fakeSource{}, WithInterval(5*time.Millisecond))
	require.NoError(t, b.Start(context.Background()))
	require.NoError(t, b.Stop())

	b.MarkFailure()
	time.Sleep(30 * time.Millisecond)
	require.Empty(t, tr.all())
	require.NoError(t, b.Stop())
}

func TestStartFailsWhenSourceFails(t *testing.T) {
	src := &fakeSource{startErr: errors.New("no recorder")}
	b := New(&fakeTransport{}, src)
	require.Error(t, b.Start(context.Background()))
	require.False(t, b.Running())
}

func TestDecodeFramesRejectsGarbage(t *testing.T) {
	_, err := DecodeFrames("not base64!")
	require.Error(t, err)
}

func TestEncodeEmptySession(t *testing.T) {
	payload, err := Encode(nil)
	require.NoError(t, err)
	frames, err := DecodeFrames(payload)
	require.NoError(t, err)
	require.Empty(t, frames)
}

func sequentialIDs() func() string {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}
}

type fakeTransport struct {
	mu     sync.Mutex
	events []domain.Event
}

func (f *fakeTransport) Send(ev domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakeTransport) all() []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Event(nil), f.events...)
}

type fakeSource struct {
	mu       sync.Mutex
	sink     func(domain.Frame)
	startErr error
	stop     bool
}

func (f *fakeSource) Start(emit func(domain.Frame)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.sink = emit
	return nil
}

func (f *fakeSource) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stop = true
	return nil
}

func (f *fakeSource) emit(frame string) {
	f.mu.Lock()
	sink := f.sink
	f.mu.Unlock()
	if sink != nil {
		sink(domain.Frame(frame))
	}
}

func (f *fakeSource) stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stop
}
