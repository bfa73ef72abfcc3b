package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/event-catalog/backend/internal/api/middleware"
	"github.com/event-catalog/backend/internal/query"
	"github.com/event-catalog/backend/internal/storage/models"
)

// EventSource serves range-filtered event reads.
type EventSource interface {
	GetEvents(ctx context.Context, startsAt, endsAt time.Time) ([]models.Event, error)
}

// EventResponse is the public projection of a catalog event. Start and
// end are split into date and time components.
type EventResponse struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	EventID   int     `json:"event_id"`
	StartDate string  `json:"start_date"`
	StartTime string  `json:"start_time"`
	EndDate   string  `json:"end_date"`
	EndTime   string  `json:"end_time"`
	MinPrice  float64 `json:"min_price"`
	MaxPrice  float64 `json:"max_price"`
}

// EventListResponse wraps the event list in the data/error envelope.
type EventListResponse struct {
	Data  *EventListData `json:"data"`
	Error *string        `json:"error"`
}

// EventListData holds the events payload.
type EventListData struct {
	Events []EventResponse `json:"events"`
}

// timestampLayouts are the accepted query parameter formats.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ListEvents returns the events fully contained in the requested range.
func ListEvents(source EventSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startsAt, err := parseTimeParam(r, "starts_at")
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, err.Error())
			return
		}
		endsAt, err := parseTimeParam(r, "ends_at")
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, err.Error())
			return
		}

		events, err := source.GetEvents(r.Context(), startsAt, endsAt)
		if err != nil {
			if errors.Is(err, query.ErrInvalidRange) {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "End date should be greater than start date")
				return
			}
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query events")
			return
		}

		response := EventListResponse{
			Data: &EventListData{Events: make([]EventResponse, 0, len(events))},
		}
		for i := range events {
			response.Data.Events = append(response.Data.Events, toEventResponse(&events[i]))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// parseTimeParam reads a required timestamp query parameter.
func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return time.Time{}, errors.New(name + " is required")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New(name + " must be an ISO-8601 timestamp")
}

func toEventResponse(e *models.Event) EventResponse {
	return EventResponse{
		ID:        e.ID,
		Title:     e.Title,
		EventID:   e.EventID,
		StartDate: e.StartsAt.Format("2006-01-02"),
		StartTime: e.StartsAt.Format("15:04:05"),
		EndDate:   e.EndsAt.Format("2006-01-02"),
		EndTime:   e.EndsAt.Format("15:04:05"),
		MinPrice:  e.MinPrice,
		MaxPrice:  e.MaxPrice,
	}
}
