package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/ghalamif/AegisPulse/internal/adapters/observability"
	"github.com/ghalamif/AegisPulse/internal/domain"
	"github.com/ghalamif/AegisPulse/internal/ports"
)

const (
	// BeaconMaxSize is the largest payload offered to the detached beacon primitive.
	BeaconMaxSize = 64 * 1024
	// PixelMaxSize bounds both the payload eligible for the pixel fallback and the probe URL.
	PixelMaxSize = 2 * 1024

	defaultTimeout = 10 * time.Second
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Identity is merged into every event before serialization.
type Identity struct {
	DSN    string
	APIKey string
	UserID string
}

// Option customizes a Transport.
type Option func(*Transport)

// WithTimeout bounds each background stream or pixel request.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// Transport delivers events over the best channel the host offers, degrading from the
// detached beacon to a streaming POST to a pixel probe.
type Transport struct {
	id      Identity
	beacon  ports.BeaconSender
	stream  ports.StreamSender
	pixel   ports.PixelSender
	waiter  waiter
	obs     ports.Observability
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

type waiter interface {
	Wait(ctx context.Context) error
}

// New binds a transport to id. Capabilities are queried once, here.
func New(id Identity, caps ports.Capabilities, obs ports.Observability, opts ...Option) *Transport {
	if obs == nil {
		obs = observability.Nop{}
	}
	t := &Transport{id: id, obs: obs, timeout: defaultTimeout}
	if caps != nil {
		if b, ok := caps.Beacon(); ok {
			t.beacon = b
		}
		if s, ok := caps.Stream(); ok {
			t.stream = s
		}
		if p, ok := caps.Pixel(); ok {
			t.pixel = p
		}
		t.waiter, _ = caps.(waiter)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Send never blocks past serialization and never panics.
func (t *Transport) Send(event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			t.obs.LogError("transport_send_panic", fmt.Errorf("%v", r))
		}
	}()

	body, err := t.encode(event)
	if err != nil {
		t.drop("transport_encode_failed", err, 0)
		return
	}
	size := len(body)
	t.obs.ObserveSize(observability.PayloadBytes, float64(size))

	if size <= BeaconMaxSize && t.beacon != nil {
		if t.beacon.Beacon(t.id.DSN, body) {
			t.obs.IncCounter(observability.TransportBeaconTotal, 1)
			return
		}
		t.obs.IncCounter(observability.TransportFailedTotal, 1)
	}

	if t.stream != nil {
		t.async(func(ctx context.Context) {
			if err := t.stream.Post(ctx, t.id.DSN, body); err != nil {
				t.obs.IncCounter(observability.TransportFailedTotal, 1)
				if size > PixelMaxSize {
					t.drop("transport_stream_failed_too_large_for_pixel", err, size)
					return
				}
				t.sendPixel(ctx, body)
				return
			}
			t.obs.IncCounter(observability.TransportStreamTotal, 1)
		})
		return
	}

	if size > PixelMaxSize {
		t.drop("transport_no_channel_for_size", errors.New("payload too large and no stream capability"), size)
		return
	}
	t.async(func(ctx context.Context) { t.sendPixel(ctx, body) })
}

// Flush stops accepting background deliveries and waits for the ones already started,
// including detached beacons when the capability provider can report them. Streams and
// pixels requested after Flush are dropped.
func (t *Transport) Flush(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if t.waiter != nil {
		return t.waiter.Wait(ctx)
	}
	return nil
}

// Identity returns the identity the transport was bound to.
func (t *Transport) Identity() Identity { return t.id }

func (t *Transport) encode(event domain.Event) ([]byte, error) {
	payload := make(map[string]any, len(event)+2)
	for k, v := range event {
		payload[k] = v
	}
	payload[domain.FieldAPIKey] = t.id.APIKey
	if t.id.UserID != "" {
		payload[domain.FieldUserID] = t.id.UserID
	} else {
		delete(payload, domain.FieldUserID)
	}
	return json.Marshal(payload)
}

func (t *Transport) async(fn func(ctx context.Context)) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		t.drop("transport_closed", errors.New("transport flushed"), 0)
		return
	}
	t.wg.Add(1)
	t.mu.Unlock()
	go func() {
		defer t.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				t.obs.LogError("transport_delivery_panic", fmt.Errorf("%v", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (t *Transport) sendPixel(ctx context.Context, body []byte) {
	if t.pixel == nil {
		t.drop("transport_no_pixel_capability", errors.New("pixel probe unavailable"), len(body))
		return
	}
	probe := PixelURL(t.id.DSN, body)
	if len(probe) > PixelMaxSize {
		t.drop("transport_pixel_url_too_long", fmt.Errorf("url length %d exceeds %d", len(probe), PixelMaxSize), len(body))
		return
	}
	if err := t.pixel.Probe(ctx, probe); err != nil {
		t.obs.IncCounter(observability.TransportFailedTotal, 1)
		t.drop("transport_pixel_failed", err, len(body))
		return
	}
	t.obs.IncCounter(observability.TransportPixelTotal, 1)
}

func (t *Transport) drop(msg string, err error, size int) {
	t.obs.IncCounter(observability.TransportDroppedTotal, 1)
	t.obs.LogWarn(msg, err, ports.Field{Key: "bytes", Value: size})
}

// PixelURL appends body as the data query parameter of dsn.
func PixelURL(dsn string, body []byte) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "data=" + url.QueryEscape(string(body))
}

var _ ports.Transport = (*Transport)(nil)
