package domain

import "time"

// Record is one ingested event as stored by the collector.
type Record struct {
	AppID      string    `json:"app_id"`
	EventType  string    `json:"event_type"`
	Message    *string   `json:"message"`
	Info       []byte    `json:"info"`
	ReceivedAt time.Time `json:"received_at"`
}
