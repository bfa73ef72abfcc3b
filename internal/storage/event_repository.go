package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/event-catalog/backend/internal/storage/models"
)

// Sentinel errors for repository failures. Callers match with errors.Is.
var (
	// ErrConflict indicates an insert violated the unique
	// (base_event_id, event_id) constraint. Expected when two
	// ingestion cycles race over the same candidates.
	ErrConflict = errors.New("event already exists")

	// ErrUnavailable indicates the store could not serve the request.
	ErrUnavailable = errors.New("repository unavailable")
)

const eventColumns = "id, base_event_id, event_id, title, starts_at, ends_at, min_price, max_price, created_at"

// EventRepository provides data access for the event catalog.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// FindByCompositeKeys retrieves all events whose (base_event_id, event_id)
// pair is in keys, as a single batched query.
func (r *EventRepository) FindByCompositeKeys(ctx context.Context, keys []models.EventKey) ([]models.Event, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	placeholders := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		placeholders = append(placeholders, "(?, ?)")
		args = append(args, k.BaseEventID, k.EventID)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM events WHERE (base_event_id, event_id) IN (VALUES %s)",
		eventColumns, strings.Join(placeholders, ", "),
	)

	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("%w: querying events by key: %v", ErrUnavailable, err)
	}

	return events, nil
}

// FindByRange retrieves all events fully contained in [start, end]:
// starts_at >= start and ends_at <= end. Overlapping-only events are
// excluded.
func (r *EventRepository) FindByRange(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	var events []models.Event
	err := r.db.SelectContext(ctx, &events, fmt.Sprintf(`
		SELECT %s FROM events
		WHERE starts_at >= ? AND ends_at <= ?
		ORDER BY starts_at, event_id
	`, eventColumns), start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: querying events by range: %v", ErrUnavailable, err)
	}

	return events, nil
}

// InsertAll inserts the given events in a single transaction. Either
// every record commits or none do. A unique-constraint violation rolls
// the batch back and reports ErrConflict.
func (r *EventRepository) InsertAll(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	err := r.db.Transaction(func(tx *sqlx.Tx) error {
		for i := range events {
			if events[i].ID == "" {
				events[i].ID = uuid.New().String()
			}
			if events[i].CreatedAt.IsZero() {
				events[i].CreatedAt = time.Now().UTC()
			}

			_, err := tx.NamedExecContext(ctx, `
				INSERT INTO events (id, base_event_id, event_id, title, starts_at, ends_at, min_price, max_price, created_at)
				VALUES (:id, :base_event_id, :event_id, :title, :starts_at, :ends_at, :min_price, :max_price, :created_at)
			`, events[i])
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return fmt.Errorf("%w: inserting events: %v", ErrUnavailable, err)
	}

	return nil
}

// CountAll returns the total number of events in the catalog.
func (r *EventRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM events"); err != nil {
		return 0, fmt.Errorf("%w: counting events: %v", ErrUnavailable, err)
	}
	return count, nil
}

// isUniqueViolation reports whether err is a SQLite unique-constraint error.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
