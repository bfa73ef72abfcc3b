package ingest

import (
	"context"
	"sync"
	"testing"
	"time"
)

// blockingFetcher parks in Fetch until released, so tests can hold a
// cycle in flight.
type blockingFetcher struct {
	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func newBlockingFetcher() *blockingFetcher {
	return &blockingFetcher{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (f *blockingFetcher) Fetch(context.Context) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	f.entered <- struct{}{}
	<-f.release
	return []byte("<root></root>"), nil
}

func (f *blockingFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSchedulerSingleFlight(t *testing.T) {
	fetcher := newBlockingFetcher()
	s := NewScheduler(NewPipeline(fetcher, newFakeStore()), nil, time.Minute, 0)

	go s.runCycle(context.Background(), "first")
	<-fetcher.entered

	// A second firing while the first cycle is in flight is skipped.
	s.runCycle(context.Background(), "second")
	if got := fetcher.callCount(); got != 1 {
		t.Fatalf("expected 1 fetch while cycle in flight, got %d", got)
	}

	close(fetcher.release)
	waitFor(t, time.Second, func() bool { return s.LastResult() != nil })

	// Guard is released after the cycle finishes.
	s.runCycle(context.Background(), "third")
	if got := fetcher.callCount(); got != 2 {
		t.Fatalf("expected guard released after cycle, got %d fetches", got)
	}
}

func TestSchedulerMisfireGraceSkips(t *testing.T) {
	fetcher := newBlockingFetcher()
	close(fetcher.release)
	s := NewScheduler(NewPipeline(fetcher, newFakeStore()), nil, time.Minute, time.Second)

	s.mu.Lock()
	s.nextDue = time.Now().Add(-5 * time.Second)
	s.mu.Unlock()

	s.fire()
	if got := fetcher.callCount(); got != 0 {
		t.Fatalf("firing past misfire grace must be skipped, got %d fetches", got)
	}
}

func TestSchedulerFiresWithinGrace(t *testing.T) {
	fetcher := newBlockingFetcher()
	close(fetcher.release)
	s := NewScheduler(NewPipeline(fetcher, newFakeStore()), nil, time.Minute, 10*time.Second)

	s.mu.Lock()
	s.nextDue = time.Now()
	s.mu.Unlock()

	s.fire()
	waitFor(t, time.Second, func() bool { return fetcher.callCount() == 1 })
	if s.LastResult() == nil {
		t.Fatal("expected last result to be recorded")
	}
}

func TestSchedulerStopWaitsForInFlightCycle(t *testing.T) {
	fetcher := newBlockingFetcher()
	s := NewScheduler(NewPipeline(fetcher, newFakeStore()), nil, time.Minute, 0)

	go s.runCycle(context.Background(), "in-flight")
	<-fetcher.entered

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a cycle was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(fetcher.release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the cycle completed")
	}
}

func TestSchedulerFailedCycleDoesNotPanic(t *testing.T) {
	fetcher := &fakeFetcher{err: context.DeadlineExceeded}
	s := NewScheduler(NewPipeline(fetcher, newFakeStore()), nil, time.Minute, 0)

	s.runCycle(context.Background(), "failing")

	result := s.LastResult()
	if result == nil || result.Error == nil {
		t.Fatal("expected failed result to be recorded")
	}

	// The scheduler keeps accepting firings after a failure.
	s.runCycle(context.Background(), "retry")
	if fetcher.calls != 2 {
		t.Fatalf("expected retry to run, got %d fetches", fetcher.calls)
	}
}
