package domain

import "time"

// Event is a JSON-serializable record produced by a capture source and handed to the transport.
type Event map[string]any

// Event types emitted by the built-in capture sources.
const (
	EventError              = "error"
	EventUnhandledRejection = "unhandledrejection"
	EventPerformance        = "performance"
	EventBlankPage          = "blank-page"
	EventRecordScreen       = "record-screen"
	EventFetchRequest       = "fetch-request"
	EventXHRRequest         = "xhr-request"
)

// Identity fields merged into every event at send time.
const (
	FieldAPIKey = "apikey"
	FieldUserID = "userId"
)

// ErrorInfo carries a failure that did not originate as a Go error value (for example a
// message relayed from an embedded script runtime).
type ErrorInfo struct {
	Message string `json:"message"`
	Stack   string `json:"stack"`
	Name    string `json:"name"`
}

func (e ErrorInfo) Error() string { return e.Message }

// Timestamp renders t the way event payloads carry it.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
