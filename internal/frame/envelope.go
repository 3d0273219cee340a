// Package frame implements the cross-frame command protocol between
// the embedded widget and its hosting page. Commands travel as typed
// JSON envelopes over a single WebSocket port the host establishes.
package frame

import "encoding/json"

// Kind discriminates the command carried by an envelope.
type Kind string

// Outbound commands (widget -> host).
const (
	KindScrollHeight    Kind = "scrollHeight"
	KindAlert           Kind = "alert"
	KindConfirmModal    Kind = "confirmModal"
	KindAlarmModal      Kind = "alarmModal"
	KindLikingUserModal Kind = "likingUserModal"
)

// Inbound commands (host -> widget). The host stream is open-ended;
// only confirm results get dedicated handling, everything else is
// passed through to subscribers.
const (
	KindConfirmResult Kind = "confirmResult"
)

// Message is the envelope serialized across the frame boundary. Only
// the fields relevant to its kind are populated.
type Message struct {
	Kind      Kind            `json:"kind"`
	Height    int             `json:"height,omitempty"`
	Message   string          `json:"message,omitempty"`
	ConfirmID string          `json:"confirmId,omitempty"`
	Accepted  bool            `json:"accepted,omitempty"`
	UserID    int64           `json:"userId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}
