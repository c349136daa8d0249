package repository // repository for seat persistence

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/iliyamo/ticket-inventory/internal/model"
)

// MySQL error numbers that signal row-lock contention.  3572 is raised by
// SELECT ... FOR UPDATE NOWAIT when the rows are already locked; 1205 is the
// ordinary lock-wait timeout and is mapped the same way so a misconfigured
// server still degrades to a fast retry-able error rather than a hang.
const (
    mysqlErrLockNowait      = 3572
    mysqlErrLockWaitTimeout = 1205
)

// SeatRepo encapsulates database operations for the seats table.  The seat
// rows are the single source of truth for seat state.  Methods suffixed Tx
// operate inside a caller-supplied transaction; the caller is responsible
// for committing or rolling back.  All timestamps are UTC.
type SeatRepo struct {
    db *sql.DB
}

// NewSeatRepo constructs a SeatRepo given a DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// DB exposes the underlying handle so services can begin transactions.
func (r *SeatRepo) DB() *sql.DB { return r.db }

const seatColumns = `id, event_id, section, row_label, seat_number, price_cents, price_tier,
                     status, held_until, held_by_session, created_at, updated_at`

// scanSeats reads seat rows into model structs, closing rows on return.
func scanSeats(rows *sql.Rows) ([]model.Seat, error) {
    defer rows.Close()
    var seats []model.Seat
    for rows.Next() {
        var s model.Seat
        if err := rows.Scan(
            &s.ID, &s.EventID, &s.Section, &s.RowLabel, &s.SeatNumber,
            &s.PriceCents, &s.PriceTier, &s.Status, &s.HeldUntil, &s.HeldBySession,
            &s.CreatedAt, &s.UpdatedAt,
        ); err != nil {
            return nil, err
        }
        seats = append(seats, s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return seats, nil
}

// placeholders returns a "?, ?, ?" fragment for n bound values.
func placeholders(n int) string {
    if n <= 0 {
        return ""
    }
    return strings.Repeat("?, ", n-1) + "?"
}

// idArgs converts seat IDs into a []interface{} for query binding.
func idArgs(ids []uint64) []interface{} {
    args := make([]interface{}, 0, len(ids))
    for _, id := range ids {
        args = append(args, id)
    }
    return args
}

// ListByEvent returns every seat of an event ordered by section, row and
// number.  An event with no seats yields an empty slice and nil error.
func (r *SeatRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Seat, error) {
    q := `SELECT ` + seatColumns + ` FROM seats WHERE event_id = ?
          ORDER BY section, row_label, seat_number`
    rows, err := r.db.QueryContext(ctx, q, eventID)
    if err != nil {
        return nil, err
    }
    return scanSeats(rows)
}

// ListBySection returns the seats of one section of an event, ordered by
// row and number.  Used for detailed seat-map rendering, so it always hits
// the database rather than any cache.
func (r *SeatRepo) ListBySection(ctx context.Context, eventID uint64, section string) ([]model.Seat, error) {
    q := `SELECT ` + seatColumns + ` FROM seats WHERE event_id = ? AND section = ?
          ORDER BY row_label, seat_number`
    rows, err := r.db.QueryContext(ctx, q, eventID, section)
    if err != nil {
        return nil, err
    }
    return scanSeats(rows)
}

// ListByIDs returns the seats of an event matching the given IDs.  The
// result may be shorter than the input when some IDs do not exist.
func (r *SeatRepo) ListByIDs(ctx context.Context, eventID uint64, seatIDs []uint64) ([]model.Seat, error) {
    if len(seatIDs) == 0 {
        return []model.Seat{}, nil
    }
    q := `SELECT ` + seatColumns + ` FROM seats
          WHERE event_id = ? AND id IN (` + placeholders(len(seatIDs)) + `)
          ORDER BY section, row_label, seat_number`
    args := append([]interface{}{eventID}, idArgs(seatIDs)...)
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    return scanSeats(rows)
}

// LockSeatsForUpdateTx selects the requested seat rows with a non-blocking
// row lock.  If another transaction already holds any of the rows, MySQL
// aborts the statement immediately and the error is mapped to ErrRowLocked
// so the caller can fail fast instead of queueing.  The returned slice may
// be shorter than seatIDs when some IDs do not exist for the event.
func (r *SeatRepo) LockSeatsForUpdateTx(ctx context.Context, tx *sql.Tx, eventID uint64, seatIDs []uint64) ([]model.Seat, error) {
    if len(seatIDs) == 0 {
        return []model.Seat{}, nil
    }
    q := `SELECT ` + seatColumns + ` FROM seats
          WHERE event_id = ? AND id IN (` + placeholders(len(seatIDs)) + `)
          FOR UPDATE NOWAIT`
    args := append([]interface{}{eventID}, idArgs(seatIDs)...)
    rows, err := tx.QueryContext(ctx, q, args...)
    if err != nil {
        var me *mysql.MySQLError
        if errors.As(err, &me) && (me.Number == mysqlErrLockNowait || me.Number == mysqlErrLockWaitTimeout) {
            return nil, ErrRowLocked
        }
        return nil, err
    }
    return scanSeats(rows)
}

// MarkHeldTx transitions the given seats to HELD for sessionID until
// heldUntil.  Callers must have verified, under row locks, that every seat
// is currently AVAILABLE; the status condition here is a final guard that
// makes a lost race update zero rows instead of stealing a seat.
func (r *SeatRepo) MarkHeldTx(ctx context.Context, tx *sql.Tx, eventID uint64, seatIDs []uint64, sessionID string, heldUntil time.Time) (int64, error) {
    if len(seatIDs) == 0 {
        return 0, nil
    }
    q := `UPDATE seats SET status = ?, held_until = ?, held_by_session = ?
          WHERE event_id = ? AND id IN (` + placeholders(len(seatIDs)) + `) AND status = ?`
    args := []interface{}{model.SeatStatusHeld, heldUntil.UTC(), sessionID, eventID}
    args = append(args, idArgs(seatIDs)...)
    args = append(args, model.SeatStatusAvailable)
    res, err := tx.ExecContext(ctx, q, args...)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// ReleaseHeldTx transitions seats held by sessionID back to AVAILABLE,
// clearing the hold fields.  The held_by_session condition means a release
// by a session that does not own the hold simply touches zero rows.
func (r *SeatRepo) ReleaseHeldTx(ctx context.Context, tx *sql.Tx, eventID uint64, seatIDs []uint64, sessionID string) (int64, error) {
    if len(seatIDs) == 0 {
        return 0, nil
    }
    q := `UPDATE seats SET status = ?, held_until = NULL, held_by_session = NULL
          WHERE event_id = ? AND id IN (` + placeholders(len(seatIDs)) + `)
            AND status = ? AND held_by_session = ?`
    args := []interface{}{model.SeatStatusAvailable, eventID}
    args = append(args, idArgs(seatIDs)...)
    args = append(args, model.SeatStatusHeld, sessionID)
    res, err := tx.ExecContext(ctx, q, args...)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// ExpiredHolds returns the seats whose hold lapsed, grouped by event, so
// the sweep can reconcile one event per transaction.  The read is not
// locked; the subsequent conditional update is what makes the sweep safe
// to run concurrently from multiple instances.
func (r *SeatRepo) ExpiredHolds(ctx context.Context, now time.Time) (map[uint64][]uint64, error) {
    const q = `SELECT id, event_id FROM seats WHERE status = ? AND held_until < ?`
    rows, err := r.db.QueryContext(ctx, q, model.SeatStatusHeld, now.UTC())
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    expired := make(map[uint64][]uint64)
    for rows.Next() {
        var seatID, eventID uint64
        if err := rows.Scan(&seatID, &eventID); err != nil {
            return nil, err
        }
        expired[eventID] = append(expired[eventID], seatID)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return expired, nil
}

// ReleaseExpiredTx transitions expired holds of one event back to
// AVAILABLE.  The update is conditioned on the row still being HELD with a
// lapsed held_until at write time, so a concurrent sweep (or a shopper who
// re-reserved the seat in between) makes the second pass a no-op.
func (r *SeatRepo) ReleaseExpiredTx(ctx context.Context, tx *sql.Tx, eventID uint64, seatIDs []uint64, now time.Time) (int64, error) {
    if len(seatIDs) == 0 {
        return 0, nil
    }
    q := `UPDATE seats SET status = ?, held_until = NULL, held_by_session = NULL
          WHERE event_id = ? AND id IN (` + placeholders(len(seatIDs)) + `)
            AND status = ? AND held_until < ?`
    args := []interface{}{model.SeatStatusAvailable, eventID}
    args = append(args, idArgs(seatIDs)...)
    args = append(args, model.SeatStatusHeld, now.UTC())
    res, err := tx.ExecContext(ctx, q, args...)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// RecountAvailableTx recomputes the event's denormalized available_seats
// counter from the seats table inside the current transaction.  Recompute
// rather than increment: partial failures can never leave the counter
// drifted from the rows it summarizes.
func (r *SeatRepo) RecountAvailableTx(ctx context.Context, tx *sql.Tx, eventID uint64) error {
    const q = `UPDATE events
               SET available_seats = (SELECT COUNT(*) FROM seats WHERE event_id = ? AND status = ?)
               WHERE id = ?`
    _, err := tx.ExecContext(ctx, q, eventID, model.SeatStatusAvailable, eventID)
    return err
}
