package ports

import (
	"context"

	"github.com/ghalamif/AegisPulse/internal/domain"
)

// Transport delivers events to the collector. Send is fire-and-forget.
type Transport interface {
	Send(event domain.Event)
}

// BeaconSender is a detached delivery primitive: it either accepts the payload for
// background delivery that outlives the caller, or reports false immediately.
type BeaconSender interface {
	Beacon(url string, body []byte) bool
}

// StreamSender posts a full payload and reports the outcome.
type StreamSender interface {
	Post(ctx context.Context, url string, body []byte) error
}

// PixelSender issues a GET request to a URL that already carries the payload.
type PixelSender interface {
	Probe(ctx context.Context, url string) error
}

// Capabilities describes which delivery primitives the host offers. Each accessor reports
// availability alongside the sender; transports query it once at construction.
type Capabilities interface {
	Beacon() (BeaconSender, bool)
	Stream() (StreamSender, bool)
	Pixel() (PixelSender, bool)
}
