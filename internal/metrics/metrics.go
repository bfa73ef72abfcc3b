// Package metrics registers the Prometheus collectors for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// IngestCycles counts ingestion cycles by outcome
	// (success, failed, skipped).
	IngestCycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalog",
		Subsystem: "ingest",
		Name:      "cycles_total",
		Help:      "Ingestion cycles by outcome",
	}, []string{"outcome"})

	// EventsInserted counts events written to the catalog.
	EventsInserted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "catalog",
		Subsystem: "ingest",
		Name:      "events_inserted_total",
		Help:      "Events inserted into the catalog",
	})

	// RecordsSkipped counts feed records dropped during parsing by
	// reason (offline, malformed, duplicate).
	RecordsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalog",
		Subsystem: "ingest",
		Name:      "records_skipped_total",
		Help:      "Feed records skipped during parsing by reason",
	}, []string{"reason"})

	// CycleDuration observes ingestion cycle wall time.
	CycleDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: "catalog",
		Subsystem: "ingest",
		Name:      "cycle_duration_seconds",
		Help:      "Ingestion cycle duration in seconds",
	})

	// CacheRequests counts query cache lookups by result (hit, miss).
	CacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalog",
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Query cache lookups by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		IngestCycles,
		EventsInserted,
		RecordsSkipped,
		CycleDuration,
		CacheRequests,
	)
}
