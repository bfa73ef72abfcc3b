package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/event-catalog/backend/internal/storage/models"
)

func testRepo(t *testing.T) *EventRepository {
	t.Helper()
	db, err := NewMemoryDB()
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := RunMigrations(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return NewEventRepository(db)
}

func testEvent(baseEventID, eventID int, start, end time.Time) models.Event {
	return models.Event{
		BaseEventID: baseEventID,
		EventID:     eventID,
		Title:       "Concert",
		StartsAt:    start,
		EndsAt:      end,
		MinPrice:    15.00,
		MaxPrice:    30.00,
	}
}

var (
	t0 = time.Date(2021, 6, 30, 21, 0, 0, 0, time.UTC)
	t1 = time.Date(2021, 6, 30, 23, 0, 0, 0, time.UTC)
)

func TestInsertAllAndFindByCompositeKeys(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	events := []models.Event{
		testEvent(291, 291, t0, t1),
		testEvent(322, 1591, t0, t1),
	}
	if err := repo.InsertAll(ctx, events); err != nil {
		t.Fatalf("InsertAll returned error: %v", err)
	}

	found, err := repo.FindByCompositeKeys(ctx, []models.EventKey{
		{BaseEventID: 291, EventID: 291},
		{BaseEventID: 999, EventID: 999},
	})
	if err != nil {
		t.Fatalf("FindByCompositeKeys returned error: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 match, got %d", len(found))
	}
	if found[0].BaseEventID != 291 || found[0].EventID != 291 {
		t.Errorf("unexpected match %+v", found[0])
	}
	if found[0].ID == "" {
		t.Error("expected generated row ID")
	}
}

func TestFindByCompositeKeysEmpty(t *testing.T) {
	repo := testRepo(t)
	found, err := repo.FindByCompositeKeys(context.Background(), nil)
	if err != nil {
		t.Fatalf("FindByCompositeKeys returned error: %v", err)
	}
	if found != nil {
		t.Errorf("expected nil for empty key set, got %+v", found)
	}
}

func TestInsertAllConflictRollsBackBatch(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	if err := repo.InsertAll(ctx, []models.Event{testEvent(1, 1, t0, t1)}); err != nil {
		t.Fatalf("seed insert returned error: %v", err)
	}

	// Batch with one fresh and one conflicting record: nothing commits.
	err := repo.InsertAll(ctx, []models.Event{
		testEvent(2, 2, t0, t1),
		testEvent(1, 1, t0, t1),
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	count, err := repo.CountAll(ctx)
	if err != nil {
		t.Fatalf("CountAll returned error: %v", err)
	}
	if count != 1 {
		t.Errorf("conflicting batch must roll back entirely, count=%d", count)
	}
}

func TestInsertAllIdempotentKeys(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	event := testEvent(10, 20, t0, t1)
	if err := repo.InsertAll(ctx, []models.Event{event}); err != nil {
		t.Fatalf("first insert returned error: %v", err)
	}
	err := repo.InsertAll(ctx, []models.Event{event})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("reinserting same composite key must conflict, got %v", err)
	}
}

func TestFindByRangeStrictContainment(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	rangeStart := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)

	events := []models.Event{
		// Fully inside the window.
		testEvent(1, 1, rangeStart.Add(24*time.Hour), rangeStart.Add(26*time.Hour)),
		// Starts before the window.
		testEvent(2, 2, rangeStart.Add(-time.Hour), rangeStart.Add(time.Hour)),
		// Ends after the window.
		testEvent(3, 3, rangeEnd.Add(-time.Hour), rangeEnd.Add(time.Hour)),
		// Entirely outside.
		testEvent(4, 4, rangeEnd.Add(24*time.Hour), rangeEnd.Add(26*time.Hour)),
		// Exactly on the boundaries.
		testEvent(5, 5, rangeStart, rangeEnd),
	}
	if err := repo.InsertAll(ctx, events); err != nil {
		t.Fatalf("InsertAll returned error: %v", err)
	}

	found, err := repo.FindByRange(ctx, rangeStart, rangeEnd)
	if err != nil {
		t.Fatalf("FindByRange returned error: %v", err)
	}

	ids := make(map[int]bool)
	for _, e := range found {
		ids[e.EventID] = true
		if e.StartsAt.Before(rangeStart) || e.EndsAt.After(rangeEnd) {
			t.Errorf("event %d violates strict containment: [%v, %v]", e.EventID, e.StartsAt, e.EndsAt)
		}
	}
	if len(found) != 2 || !ids[1] || !ids[5] {
		t.Errorf("expected events 1 and 5, got %+v", ids)
	}
}

func TestFindByRangeEmpty(t *testing.T) {
	repo := testRepo(t)
	found, err := repo.FindByRange(context.Background(), t0, t1)
	if err != nil {
		t.Fatalf("FindByRange returned error: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("expected no events, got %d", len(found))
	}
}

func TestCountAll(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	count, err := repo.CountAll(ctx)
	if err != nil {
		t.Fatalf("CountAll returned error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty catalog, got %d", count)
	}

	if err := repo.InsertAll(ctx, []models.Event{testEvent(1, 1, t0, t1), testEvent(1, 2, t0, t1)}); err != nil {
		t.Fatalf("InsertAll returned error: %v", err)
	}

	count, err = repo.CountAll(ctx)
	if err != nil {
		t.Fatalf("CountAll returned error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 events, got %d", count)
	}
}
