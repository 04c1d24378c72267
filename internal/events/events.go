// Package events defines the real-time event envelope and how events reach
// live connections.
package events

import "encoding/json"

// Event types pushed to chat members.
const (
	TypeMessage        = "message"
	TypeMessageUpdated = "message_updated"
	TypeMessageDeleted = "message_deleted"
)

// Envelope is the tagged wrapper every pushed event is wrapped in.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Marshal serializes an event envelope for the wire.
func Marshal(eventType string, payload any) ([]byte, error) {
	return json.Marshal(Envelope{Type: eventType, Payload: payload})
}

// Broadcaster delivers a serialized event to all live connections of the
// given uids. Delivery is best-effort; implementations never block and
// never surface errors to the caller.
type Broadcaster interface {
	Broadcast(uids []int32, payload []byte)
}
