package aegispulse

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ghalamif/AegisPulse/internal/domain"
)

// ErrChannelSinkClosed is returned when the channel sink has been closed.
var ErrChannelSinkClosed = errors.New("aegispulse: channel sink closed")

// Record mirrors the internal domain.Record but is safe for external callers.
type Record struct {
	AppID      string
	EventType  string
	Message    string
	Info       json.RawMessage
	ReceivedAt time.Time
}

// RecordBatchSink is invoked with ordered batches dequeued from the collector queue.
type RecordBatchSink func([]Record) error

// NewCallbackSink adapts a function into a ports.Sink.
func NewCallbackSink(name string, fn RecordBatchSink) Sink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes batches via a channel; it returns the sink, the read-only channel,
// and a close function that the caller should invoke during shutdown.
func NewChannelSink(name string, buffer int) (Sink, <-chan []Record, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan []Record, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   RecordBatchSink
}

func (s *callbackSink) WriteBatch(records []*domain.Record) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	if len(records) == 0 {
		return nil
	}
	return s.fn(convertDomainBatch(records))
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan []Record
	closed chan struct{}
	once   sync.Once
}

func (s *channelSink) WriteBatch(records []*domain.Record) error {
	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	if len(records) == 0 {
		return nil
	}

	batch := convertDomainBatch(records)

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- batch:
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}

func convertDomainBatch(records []*domain.Record) []Record {
	if len(records) == 0 {
		return nil
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		out = append(out, recordFromDomain(r))
	}
	return out
}

func recordFromDomain(r *domain.Record) Record {
	out := Record{
		AppID:      r.AppID,
		EventType:  r.EventType,
		ReceivedAt: r.ReceivedAt,
	}
	if r.Message != nil {
		out.Message = *r.Message
	}
	if len(r.Info) > 0 {
		out.Info = append(json.RawMessage(nil), r.Info...)
	}
	return out
}

func (r Record) toDomain() *domain.Record {
	out := &domain.Record{
		AppID:      r.AppID,
		EventType:  r.EventType,
		ReceivedAt: r.ReceivedAt,
	}
	if r.Message != "" {
		msg := r.Message
		out.Message = &msg
	}
	if len(r.Info) > 0 {
		out.Info = append([]byte(nil), r.Info...)
	}
	return out
}
