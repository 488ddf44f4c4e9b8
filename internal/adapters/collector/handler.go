package collector

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ghalamif/AegisPulse/internal/adapters/observability"
	"github.com/ghalamif/AegisPulse/internal/domain"
	"github.com/ghalamif/AegisPulse/internal/ports"
)

// MaxBodyBytes bounds a POSTed tracking payload.
const MaxBodyBytes = 10 << 20

// ErrRateLimited marks requests refused because the client exhausted its allowance.
var ErrRateLimited = errors.New("collector: rate limit exceeded")

// pixel is a transparent 1x1 GIF returned to GET probes.
var pixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// AdmitFunc hands a decoded record to the ingest side. An error means it was not accepted.
type AdmitFunc func(*domain.Record) error

// Handler is the tracking endpoint: beacons and streamed events arrive as POST bodies,
// pixel probes as GET requests carrying the JSON in the data parameter.
type Handler struct {
	admit   AdmitFunc
	limiter *RateLimiter
	obs     ports.Observability
	now     func() time.Time
}

func NewHandler(admit AdmitFunc, limiter *RateLimiter, obs ports.Observability) *Handler {
	if obs == nil {
		obs = observability.Nop{}
	}
	return &Handler{admit: admit, limiter: limiter, obs: obs, now: time.Now}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	var raw []byte
	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
		if err != nil {
			h.reject(w, http.StatusBadRequest, "collector_body_read_failed", err)
			return
		}
		raw = body
	case http.MethodGet:
		data := r.URL.Query().Get("data")
		if data == "" {
			h.reject(w, http.StatusBadRequest, "collector_missing_data", errors.New("missing required query parameter: data"))
			return
		}
		raw = []byte(data)
	default:
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		h.reject(w, http.StatusMethodNotAllowed, "collector_method_not_allowed", errors.New(r.Method))
		return
	}

	if !h.limiter.Allow(ClientIP(r)) {
		h.reject(w, http.StatusTooManyRequests, "collector_rate_limited", ErrRateLimited)
		return
	}

	rec, err := ToRecord(raw, h.now().UTC())
	if err != nil {
		h.reject(w, http.StatusBadRequest, "collector_malformed_payload", err)
		return
	}
	if err := h.admit(rec); err != nil {
		h.reject(w, http.StatusServiceUnavailable, "collector_admit_failed", err)
		return
	}

	if r.Method == http.MethodGet {
		w.Header().Set("Content-Type", "image/gif")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(pixel)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) reject(w http.ResponseWriter, status int, msg string, err error) {
	h.obs.IncCounter(observability.CollectorRejectedTotal, 1)
	h.obs.LogWarn(msg, err, ports.Field{Key: "status", Value: status})
	http.Error(w, http.StatusText(status), status)
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
