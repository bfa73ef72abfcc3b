package ingest

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/event-catalog/backend/internal/feed"
	"github.com/event-catalog/backend/internal/metrics"
	"github.com/event-catalog/backend/internal/storage"
	"github.com/event-catalog/backend/internal/storage/models"
)

// FeedFetcher fetches raw feed bytes from the provider.
type FeedFetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Pipeline runs one ingestion cycle: fetch, parse, reconcile.
type Pipeline struct {
	fetcher    FeedFetcher
	parser     *feed.Parser
	reconciler *Reconciler
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(fetcher FeedFetcher, store CatalogStore) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		parser:     feed.NewParser(),
		reconciler: NewReconciler(store),
	}
}

// Run executes a single ingestion cycle. Cycle-level failures (fetch,
// unreadable payload, repository down) abort the cycle with no partial
// catalog mutation; the result carries the error. A lost insert race
// (storage.ErrConflict) is a benign outcome: the winning cycle already
// committed those events.
func (p *Pipeline) Run(ctx context.Context) *models.IngestResult {
	result := &models.IngestResult{StartedAt: time.Now().UTC()}
	defer func() {
		result.FinishedAt = time.Now().UTC()
		metrics.CycleDuration.Observe(result.Duration().Seconds())
	}()

	raw, err := p.fetcher.Fetch(ctx)
	if err != nil {
		result.Error = err
		metrics.IngestCycles.WithLabelValues("failed").Inc()
		return result
	}

	candidates, stats, err := p.parser.Parse(raw)
	if err != nil {
		result.Error = err
		metrics.IngestCycles.WithLabelValues("failed").Inc()
		return result
	}

	result.EventsFound = len(candidates)
	result.SkippedOffline = stats.SkippedOffline
	result.Malformed = stats.Malformed
	metrics.RecordsSkipped.WithLabelValues("offline").Add(float64(stats.SkippedOffline))
	metrics.RecordsSkipped.WithLabelValues("malformed").Add(float64(stats.Malformed))
	metrics.RecordsSkipped.WithLabelValues("duplicate").Add(float64(stats.Duplicates))

	inserted, err := p.reconciler.Reconcile(ctx, candidates)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// A concurrent cycle won the insert race; the catalog
			// already holds these events.
			log.Printf("Ingest cycle lost insert race, nothing written: %v", err)
			metrics.IngestCycles.WithLabelValues("success").Inc()
			return result
		}
		result.Error = err
		metrics.IngestCycles.WithLabelValues("failed").Inc()
		return result
	}

	result.Inserted = inserted
	metrics.EventsInserted.Add(float64(inserted))
	metrics.IngestCycles.WithLabelValues("success").Inc()
	return result
}
