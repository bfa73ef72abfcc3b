// Package main is the entry point for the event catalog service.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/event-catalog/backend/internal/api"
	"github.com/event-catalog/backend/internal/cache"
	"github.com/event-catalog/backend/internal/config"
	"github.com/event-catalog/backend/internal/feed"
	"github.com/event-catalog/backend/internal/ingest"
	"github.com/event-catalog/backend/internal/query"
	"github.com/event-catalog/backend/internal/storage"
	"github.com/event-catalog/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.Server.Addr); err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		os.Exit(0)
	}

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	log.Printf("Starting event catalog service (version: %s)...", version)

	// Initialize database
	db, err := storage.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := storage.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations complete")

	// Initialize WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()

	// Initialize repositories and services
	eventRepo := storage.NewEventRepository(db)

	feedClient := feed.NewClient(feed.ClientOptions{
		URL:           cfg.Feed.URL,
		Timeout:       time.Duration(cfg.Feed.TimeoutSec) * time.Second,
		UserAgent:     cfg.Feed.UserAgent,
		RatePerSecond: cfg.Feed.RatePerSecond,
		Burst:         cfg.Feed.Burst,
	})

	pipeline := ingest.NewPipeline(feedClient, eventRepo)
	scheduler := ingest.NewScheduler(
		pipeline,
		hub,
		time.Duration(cfg.Ingest.IntervalSec)*time.Second,
		time.Duration(cfg.Ingest.MisfireGraceSec)*time.Second,
	)

	cacheStore := cache.NewMemory(cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLSec)*time.Second)
	gateway := query.NewGateway(eventRepo, cacheStore)

	// Start the ingestion scheduler
	if err := scheduler.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start ingest scheduler: %v", err)
	}

	// Initialize HTTP router
	router := api.NewRouter(db, eventRepo, gateway, scheduler, hub)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Stop the scheduler and wait for any in-flight cycle
	scheduler.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return http.ErrAbortHandler
	}
	return nil
}
