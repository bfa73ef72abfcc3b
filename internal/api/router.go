// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/event-catalog/backend/internal/api/handlers"
	"github.com/event-catalog/backend/internal/api/middleware"
	"github.com/event-catalog/backend/internal/ingest"
	"github.com/event-catalog/backend/internal/query"
	"github.com/event-catalog/backend/internal/storage"
	"github.com/event-catalog/backend/internal/websocket"
)

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(
	db *storage.DB,
	eventRepo *storage.EventRepository,
	gateway *query.Gateway,
	scheduler *ingest.Scheduler,
	hub *websocket.Hub,
) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(db)).Methods("GET")

	// WebSocket endpoint
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(hub)).Methods("GET")

	// Event query endpoint
	api.HandleFunc("/v1/events", handlers.ListEvents(gateway)).Methods("GET")

	// Ingestion endpoints
	api.HandleFunc("/ingest/trigger", handlers.TriggerIngest(scheduler)).Methods("POST")
	api.HandleFunc("/ingest/status", handlers.IngestStatus(eventRepo, scheduler)).Methods("GET")

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return r
}
