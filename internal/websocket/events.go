package websocket

import (
	"github.com/event-catalog/backend/internal/storage/models"
)

// EventBroadcaster handles broadcasting WebSocket events.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// BroadcastIngestCompleted sends an ingest cycle completed event.
func (b *EventBroadcaster) BroadcastIngestCompleted(result models.IngestResult) {
	payload := IngestPayload{
		Status:         "success",
		EventsFound:    result.EventsFound,
		Inserted:       result.Inserted,
		SkippedOffline: result.SkippedOffline,
		Malformed:      result.Malformed,
		DurationMs:     result.Duration().Milliseconds(),
	}

	b.hub.BroadcastMessage(NewMessage(TypeIngestCompleted, payload))
}

// BroadcastIngestError sends an ingest cycle error event.
func (b *EventBroadcaster) BroadcastIngestError(err error) {
	payload := IngestErrorPayload{
		Error:   "ingest_error",
		Message: err.Error(),
	}

	b.hub.BroadcastMessage(NewMessage(TypeIngestError, payload))
}

// BroadcastNotification sends a notification to all connected clients.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	payload := NotificationPayload{
		Level:   level,
		Title:   title,
		Message: message,
	}

	b.hub.BroadcastMessage(NewMessage(TypeNotification, payload))
}
