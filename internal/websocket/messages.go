package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeIngestCompleted MessageType = "ingest.completed"
	TypeIngestError     MessageType = "ingest.error"
	TypeNotification    MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// IngestPayload is the payload for ingest.completed events.
type IngestPayload struct {
	Status         string `json:"status"`
	EventsFound    int    `json:"events_found"`
	Inserted       int    `json:"inserted"`
	SkippedOffline int    `json:"skipped_offline"`
	Malformed      int    `json:"malformed"`
	DurationMs     int64  `json:"duration_ms"`
}

// IngestErrorPayload is the payload for ingest.error events.
type IngestErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level   string `json:"level"` // info, warning, error, success
	Title   string `json:"title"`
	Message string `json:"message"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
