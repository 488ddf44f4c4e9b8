package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ghalamif/AegisPulse/internal/ports"
)

// Static offers a fixed set of delivery primitives; a nil field means unavailable.
type Static struct {
	BeaconSender ports.BeaconSender
	StreamSender ports.StreamSender
	PixelSender  ports.PixelSender
}

func (s Static) Beacon() (ports.BeaconSender, bool) { return s.BeaconSender, s.BeaconSender != nil }
func (s Static) Stream() (ports.StreamSender, bool) { return s.StreamSender, s.StreamSender != nil }
func (s Static) Pixel() (ports.PixelSender, bool)   { return s.PixelSender, s.PixelSender != nil }

// Unavailable is a host without any delivery primitive.
var Unavailable ports.Capabilities = Static{}

// HTTPOptions tunes the net/http backed capabilities.
type HTTPOptions struct {
	// MaxInFlight caps concurrent detached beacons; extra beacons are refused.
	MaxInFlight int64
	// Timeout bounds each detached beacon.
	Timeout time.Duration
}

// HTTPCapabilities implements every delivery primitive on top of an http.Client.
type HTTPCapabilities struct {
	client  *http.Client
	sem     *semaphore.Weighted
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewHTTPCapabilities(client *http.Client, opts HTTPOptions) *HTTPCapabilities {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 16
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &HTTPCapabilities{
		client:  client,
		sem:     semaphore.NewWeighted(opts.MaxInFlight),
		timeout: opts.Timeout,
	}
}

func (c *HTTPCapabilities) Beacon() (ports.BeaconSender, bool) { return beaconSender{c}, true }
func (c *HTTPCapabilities) Stream() (ports.StreamSender, bool) { return streamSender{c}, true }
func (c *HTTPCapabilities) Pixel() (ports.PixelSender, bool)   { return pixelSender{c}, true }

// Wait blocks until detached beacons finish or ctx is done.
func (c *HTTPCapabilities) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *HTTPCapabilities) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

type beaconSender struct{ c *HTTPCapabilities }

// Beacon queues the payload and returns at once. The request runs on a context detached
// from any caller so it completes while the host shuts down.
func (b beaconSender) Beacon(url string, body []byte) bool {
	if !b.c.sem.TryAcquire(1) {
		return false
	}
	payload := append([]byte(nil), body...)
	b.c.wg.Add(1)
	go func() {
		defer b.c.wg.Done()
		defer b.c.sem.Release(1)
		ctx, cancel := context.WithTimeout(context.Background(), b.c.timeout)
		defer cancel()
		_ = b.c.post(ctx, url, payload)
	}()
	return true
}

type streamSender struct{ c *HTTPCapabilities }

// Post counts any HTTP response as delivered; only transport failures are errors.
func (s streamSender) Post(ctx context.Context, url string, body []byte) error {
	return s.c.post(ctx, url, body)
}

type pixelSender struct{ c *HTTPCapabilities }

func (p pixelSender) Probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := p.c.client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("pixel probe: unexpected status %s", resp.Status)
	}
	return nil
}

var (
	_ ports.Capabilities = Static{}
	_ ports.Capabilities = (*HTTPCapabilities)(nil)
)
