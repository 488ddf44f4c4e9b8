package collector

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/ghalamif/AegisPulse/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ToRecord splits a tracking payload into the stored columns: apikey, type and message
// are lifted out, everything else is kept as JSON in Info.
func ToRecord(raw []byte, receivedAt time.Time) (*domain.Record, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if payload == nil {
		return nil, fmt.Errorf("decode payload: expected a JSON object")
	}

	appID, _ := payload[domain.FieldAPIKey].(string)
	if appID == "" {
		return nil, fmt.Errorf("payload has no %s", domain.FieldAPIKey)
	}
	eventType, _ := payload["type"].(string)

	rec := &domain.Record{AppID: appID, EventType: eventType, ReceivedAt: receivedAt}
	if msg, ok := payload["message"].(string); ok && msg != "" {
		rec.Message = &msg
	}

	delete(payload, domain.FieldAPIKey)
	delete(payload, "type")
	delete(payload, "message")
	info, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode info: %w", err)
	}
	rec.Info = info
	return rec, nil
}
