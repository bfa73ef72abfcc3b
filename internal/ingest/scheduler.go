package ingest

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/event-catalog/backend/internal/metrics"
	"github.com/event-catalog/backend/internal/storage/models"
	"github.com/event-catalog/backend/internal/websocket"
)

// Scheduler fires the ingestion pipeline on a fixed interval.
//
// Concurrency policy: an atomic in-flight guard skips a firing while a
// previous cycle is still running, and the repository's unique
// constraint on (base_event_id, event_id) backs that up if cycles ever
// overlap anyway. A firing delayed past the misfire grace period is
// skipped rather than run late.
type Scheduler struct {
	cron         *cron.Cron
	pipeline     *Pipeline
	broadcaster  *websocket.EventBroadcaster
	interval     time.Duration
	misfireGrace time.Duration

	entryID  cron.EntryID
	inFlight atomic.Bool
	wg       sync.WaitGroup

	mu         sync.Mutex
	nextDue    time.Time
	lastResult *models.IngestResult
}

// NewScheduler creates an ingestion scheduler. interval is how often a
// cycle fires; misfireGrace is how late a delayed firing may still run
// before being skipped.
func NewScheduler(pipeline *Pipeline, hub *websocket.Hub, interval, misfireGrace time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}

	var broadcaster *websocket.EventBroadcaster
	if hub != nil {
		broadcaster = websocket.NewEventBroadcaster(hub)
	}

	return &Scheduler{
		cron:         cron.New(),
		pipeline:     pipeline,
		broadcaster:  broadcaster,
		interval:     interval,
		misfireGrace: misfireGrace,
	}
}

// Start begins firing ingestion cycles.
func (s *Scheduler) Start(ctx context.Context) error {
	log.Printf("Starting ingest scheduler (every %s, misfire grace %s)", s.interval, s.misfireGrace)

	entryID, err := s.cron.AddFunc("@every "+s.interval.String(), s.fire)
	if err != nil {
		return err
	}
	s.entryID = entryID

	s.mu.Lock()
	s.nextDue = time.Now().Add(s.interval)
	s.mu.Unlock()

	s.cron.Start()
	return nil
}

// Stop halts future firings and waits for the in-flight cycle to
// complete before returning.
func (s *Scheduler) Stop() {
	log.Println("Stopping ingest scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.wg.Wait()
	log.Println("Ingest scheduler stopped")
}

// fire handles one timer firing, applying the misfire grace period.
func (s *Scheduler) fire() {
	now := time.Now()

	s.mu.Lock()
	due := s.nextDue
	s.nextDue = now.Add(s.interval)
	s.mu.Unlock()

	if s.misfireGrace > 0 && !due.IsZero() && now.Sub(due) > s.misfireGrace {
		log.Printf("Skipping ingest firing: %s past due, beyond misfire grace %s", now.Sub(due), s.misfireGrace)
		metrics.IngestCycles.WithLabelValues("skipped").Inc()
		return
	}

	s.runCycle(context.Background(), "schedule")
}

// TriggerIngest runs an immediate cycle in the background, through the
// same single-flight guard as scheduled firings.
func (s *Scheduler) TriggerIngest() {
	go s.runCycle(context.Background(), "manual")
}

// runCycle executes one pipeline run under the single-flight guard.
func (s *Scheduler) runCycle(ctx context.Context, trigger string) {
	if !s.inFlight.CompareAndSwap(false, true) {
		log.Printf("Skipping %s ingest firing: previous cycle still running", trigger)
		metrics.IngestCycles.WithLabelValues("skipped").Inc()
		return
	}
	s.wg.Add(1)
	defer func() {
		s.inFlight.Store(false)
		s.wg.Done()
	}()

	log.Printf("Ingest cycle starting (trigger: %s)", trigger)
	result := s.pipeline.Run(ctx)

	s.mu.Lock()
	s.lastResult = result
	s.mu.Unlock()

	if result.Error != nil {
		// A failed cycle never halts the timer; the next firing
		// recomputes the missing set from scratch.
		log.Printf("Ingest cycle failed: %v", result.Error)
		if s.broadcaster != nil {
			s.broadcaster.BroadcastIngestError(result.Error)
		}
		return
	}

	log.Printf("Ingest cycle completed in %s: %d candidates, %d inserted, %d offline groups skipped, %d malformed",
		result.Duration(), result.EventsFound, result.Inserted, result.SkippedOffline, result.Malformed)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastIngestCompleted(*result)
	}
}

// LastResult returns the most recent cycle outcome, or nil if no cycle
// has run yet.
func (s *Scheduler) LastResult() *models.IngestResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

// NextRun returns the next scheduled firing time, if any.
func (s *Scheduler) NextRun() *time.Time {
	entry := s.cron.Entry(s.entryID)
	if entry.Next.IsZero() {
		return nil
	}
	next := entry.Next
	return &next
}
