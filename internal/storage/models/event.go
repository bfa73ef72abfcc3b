// Package models contains the domain models for the application.
package models

import (
	"fmt"
	"time"
)

// Event represents a persisted event occurrence in the catalog.
// Once inserted an event is immutable; the catalog never updates or
// deletes rows through this subsystem.
type Event struct {
	ID          string    `db:"id" json:"id"`
	BaseEventID int       `db:"base_event_id" json:"base_event_id"`
	EventID     int       `db:"event_id" json:"event_id"`
	Title       string    `db:"title" json:"title"`
	StartsAt    time.Time `db:"starts_at" json:"starts_at"`
	EndsAt      time.Time `db:"ends_at" json:"ends_at"`
	MinPrice    float64   `db:"min_price" json:"min_price"`
	MaxPrice    float64   `db:"max_price" json:"max_price"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Key returns the composite identity of the event.
func (e *Event) Key() EventKey {
	return EventKey{BaseEventID: e.BaseEventID, EventID: e.EventID}
}

// EventKey is the (base_event_id, event_id) pair that uniquely
// identifies an event across the catalog.
type EventKey struct {
	BaseEventID int
	EventID     int
}

// String renders the key as "{baseEventID}_{eventID}", the form used
// for candidate maps and log lines.
func (k EventKey) String() string {
	return fmt.Sprintf("%d_%d", k.BaseEventID, k.EventID)
}

// FeedEvent is a candidate record produced by the feed parser.
// Structurally it mirrors Event but carries no storage identity; it is
// discarded after reconciliation.
type FeedEvent struct {
	BaseEventID int       `json:"base_event_id"`
	EventID     int       `json:"event_id"`
	Title       string    `json:"title"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	MinPrice    float64   `json:"min_price"`
	MaxPrice    float64   `json:"max_price"`
}

// Key returns the composite identity of the candidate.
func (f *FeedEvent) Key() EventKey {
	return EventKey{BaseEventID: f.BaseEventID, EventID: f.EventID}
}

// IngestResult contains the outcome of one ingestion cycle.
type IngestResult struct {
	EventsFound    int       `json:"events_found"`
	Inserted       int       `json:"inserted"`
	SkippedOffline int       `json:"skipped_offline"`
	Malformed      int       `json:"malformed"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Error          error     `json:"-"`
}

// Duration returns how long the cycle took.
func (r *IngestResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
