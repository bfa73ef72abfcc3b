package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/event-catalog/backend/internal/ingest"
	"github.com/event-catalog/backend/internal/storage"
)

// IngestStatusResponse reports the state of the ingestion pipeline.
type IngestStatusResponse struct {
	CatalogEvents int        `json:"catalog_events"`
	NextRunAt     *time.Time `json:"next_run_at,omitempty"`
	LastRun       *LastRun   `json:"last_run,omitempty"`
}

// LastRun summarizes the most recent ingestion cycle.
type LastRun struct {
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	EventsFound    int       `json:"events_found"`
	Inserted       int       `json:"inserted"`
	SkippedOffline int       `json:"skipped_offline"`
	Malformed      int       `json:"malformed"`
	Error          string    `json:"error,omitempty"`
}

// TriggerIngest starts an immediate ingestion cycle in the background.
func TriggerIngest(scheduler *ingest.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheduler.TriggerIngest()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"status": "triggered"})
	}
}

// IngestStatus reports the last cycle outcome and catalog size.
func IngestStatus(repo *storage.EventRepository, scheduler *ingest.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := repo.CountAll(r.Context())
		if err != nil {
			count = -1
		}

		response := IngestStatusResponse{
			CatalogEvents: count,
			NextRunAt:     scheduler.NextRun(),
		}

		if result := scheduler.LastResult(); result != nil {
			last := &LastRun{
				StartedAt:      result.StartedAt,
				FinishedAt:     result.FinishedAt,
				EventsFound:    result.EventsFound,
				Inserted:       result.Inserted,
				SkippedOffline: result.SkippedOffline,
				Malformed:      result.Malformed,
			}
			if result.Error != nil {
				last.Error = result.Error.Error()
			}
			response.LastRun = last
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}
