package repository // repository for event persistence

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/ticket-inventory/internal/model"
)

// EventRepo encapsulates read access to the events table.  Events are
// created and administered by the external catalog service; this core only
// reads them and, inside seat transactions, recomputes the denormalized
// available_seats counter (see SeatRepo.RecountAvailableTx).
type EventRepo struct {
    db *sql.DB
}

// NewEventRepo constructs an EventRepo given a DB handle.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle so callers can begin transactions that
// span both event and seat rows.
func (r *EventRepo) DB() *sql.DB { return r.db }

// GetByID loads a single event.  It returns ErrEventNotFound when no row
// exists.
func (r *EventRepo) GetByID(ctx context.Context, eventID uint64) (*model.Event, error) {
    const q = `SELECT id, name, status, available_seats, created_at, updated_at
               FROM events WHERE id = ?`
    var ev model.Event
    err := r.db.QueryRowContext(ctx, q, eventID).Scan(
        &ev.ID, &ev.Name, &ev.Status, &ev.AvailableSeats, &ev.CreatedAt, &ev.UpdatedAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrEventNotFound
    }
    if err != nil {
        return nil, err
    }
    return &ev, nil
}
