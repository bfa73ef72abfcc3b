// Package query serves range-filtered event reads through a
// cache-aside layer backed by the event catalog.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/event-catalog/backend/internal/cache"
	"github.com/event-catalog/backend/internal/metrics"
	"github.com/event-catalog/backend/internal/storage/models"
)

// ErrInvalidRange indicates the caller supplied a range whose end is
// not after its start. Reported before any I/O.
var ErrInvalidRange = errors.New("end date must be greater than start date")

// EventFinder is the slice of the event repository the gateway needs.
type EventFinder interface {
	FindByRange(ctx context.Context, start, end time.Time) ([]models.Event, error)
}

// Gateway implements the cache-aside read path: check the cache first,
// fall back to the catalog on a miss, repopulate the cache with the
// result. The cache is a best-effort side channel; the catalog is
// ground truth.
type Gateway struct {
	store EventFinder
	cache cache.Store
}

// NewGateway creates a query gateway over the given catalog and cache.
func NewGateway(store EventFinder, cacheStore cache.Store) *Gateway {
	return &Gateway{store: store, cache: cacheStore}
}

// GetEvents returns the events fully contained in [startsAt, endsAt]:
// every returned event has starts_at >= startsAt and ends_at <= endsAt.
// An empty result is returned (and cached) as an empty slice, never an
// error.
func (g *Gateway) GetEvents(ctx context.Context, startsAt, endsAt time.Time) ([]models.Event, error) {
	if !endsAt.After(startsAt) {
		return nil, ErrInvalidRange
	}

	key := cacheKey(startsAt, endsAt)

	if data, ok, err := g.cache.Get(ctx, key); err != nil {
		log.Printf("Cache read failed for key %s: %v", key, err)
	} else if ok {
		events, err := decodeEvents(data)
		if err != nil {
			// A corrupt entry is treated as a miss; the catalog read
			// below overwrites it.
			log.Printf("Discarding undecodable cache entry for key %s: %v", key, err)
		} else {
			metrics.CacheRequests.WithLabelValues("hit").Inc()
			return events, nil
		}
	}

	metrics.CacheRequests.WithLabelValues("miss").Inc()

	events, err := g.store.FindByRange(ctx, startsAt, endsAt)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	if events == nil {
		events = []models.Event{}
	}

	// Populate the cache before returning, empty results included. A
	// cache write failure never fails the read.
	if data, err := json.Marshal(events); err != nil {
		log.Printf("Failed to encode events for cache key %s: %v", key, err)
	} else if err := g.cache.Set(ctx, key, data); err != nil {
		log.Printf("Cache write failed for key %s: %v", key, err)
	}

	return events, nil
}

// cacheKey builds the deterministic range fingerprint. Second-precision
// RFC 3339 keeps identical ranges on identical keys.
func cacheKey(startsAt, endsAt time.Time) string {
	return "events_" + startsAt.UTC().Format(time.RFC3339) + "_" + endsAt.UTC().Format(time.RFC3339)
}

func decodeEvents(data []byte) ([]models.Event, error) {
	var events []models.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}
