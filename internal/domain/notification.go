package domain

import (
	"encoding/json"
	"time"
)

// NotificationEvent is a single "new alarm" push delivered over the
// realtime channel. The channel keeps only the most recent event, no
// history buffer.
type NotificationEvent struct {
	OccurredAt time.Time       `json:"occurredAt"`
	HasUnseen  bool            `json:"hasUnseen"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}
