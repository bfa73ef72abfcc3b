// Package ingest drives the periodic feed ingestion pipeline.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/event-catalog/backend/internal/storage/models"
)

// CatalogStore is the slice of the event repository the reconciler needs.
type CatalogStore interface {
	FindByCompositeKeys(ctx context.Context, keys []models.EventKey) ([]models.Event, error)
	InsertAll(ctx context.Context, events []models.Event) error
}

// Reconciler determines which candidate records are new relative to the
// persisted catalog and inserts exactly those. It never mutates or
// deletes existing events.
type Reconciler struct {
	store CatalogStore
}

// NewReconciler creates a reconciler backed by the given store.
func NewReconciler(store CatalogStore) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile inserts the candidates not yet present in the catalog and
// returns how many were written. Existence is checked with one batched
// query over the candidate composite keys; the missing set is written
// as one atomic batch.
//
// Running Reconcile twice with the same candidates inserts nothing the
// second time. If two runs interleave, the repository's unique
// constraint on (base_event_id, event_id) makes the losing batch fail
// with storage.ErrConflict instead of creating duplicates.
func (r *Reconciler) Reconcile(ctx context.Context, candidates map[string]models.FeedEvent) (int, error) {
	if len(candidates) == 0 {
		return 0, nil
	}

	keys := make([]models.EventKey, 0, len(candidates))
	for _, c := range candidates {
		keys = append(keys, c.Key())
	}

	existing, err := r.store.FindByCompositeKeys(ctx, keys)
	if err != nil {
		return 0, fmt.Errorf("checking existing events: %w", err)
	}

	existingKeys := make(map[models.EventKey]bool, len(existing))
	for i := range existing {
		existingKeys[existing[i].Key()] = true
	}

	var missing []models.Event
	now := time.Now().UTC()
	for _, c := range candidates {
		if existingKeys[c.Key()] {
			continue
		}
		missing = append(missing, models.Event{
			BaseEventID: c.BaseEventID,
			EventID:     c.EventID,
			Title:       c.Title,
			StartsAt:    c.StartsAt,
			EndsAt:      c.EndsAt,
			MinPrice:    c.MinPrice,
			MaxPrice:    c.MaxPrice,
			CreatedAt:   now,
		})
	}

	if len(missing) == 0 {
		return 0, nil
	}

	if err := r.store.InsertAll(ctx, missing); err != nil {
		return 0, fmt.Errorf("inserting new events: %w", err)
	}

	return len(missing), nil
}
