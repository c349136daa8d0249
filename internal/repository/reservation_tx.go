package repository

// reservation_tx.go contains the transactional entry points the reservation
// service calls.  Each function owns one database transaction end to end:
// begin, row work, counter recompute, commit.  Nothing here touches Redis;
// the authoritative commit must stay correct even when the cache layer is
// degraded or lying.

import (
    "context"
    "time"

    "github.com/iliyamo/ticket-inventory/internal/model"
)

// Reserve transitions the requested seats of an event to HELD for
// sessionID inside a single transaction, under non-blocking row locks.
//
// On success it returns the held seats with their hold fields populated.
// When some seats cannot be taken it returns the conflicting seat IDs as
// the second value: seats whose rows are presently locked by another
// reservation attempt, seats not in AVAILABLE status, and seat IDs that do
// not exist for the event all count as conflicting.  The transaction is
// rolled back whenever any requested seat cannot be taken; a reservation
// is all-or-nothing.
func (r *SeatRepo) Reserve(ctx context.Context, eventID uint64, seatIDs []uint64, sessionID string, heldUntil time.Time) ([]model.Seat, []uint64, error) {
    if len(seatIDs) == 0 {
        return []model.Seat{}, nil, nil
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    rows, err := r.LockSeatsForUpdateTx(ctx, tx, eventID, seatIDs)
    if err == ErrRowLocked {
        // NOWAIT aborted the statement: another transaction holds at least
        // one of the rows.  MySQL does not say which, so report them all.
        return nil, append([]uint64(nil), seatIDs...), nil
    }
    if err != nil {
        return nil, nil, err
    }

    // Collect seats that are missing or not available.
    locked := make(map[uint64]model.Seat, len(rows))
    for _, s := range rows {
        locked[s.ID] = s
    }
    var conflicting []uint64
    for _, id := range seatIDs {
        s, ok := locked[id]
        if !ok || s.Status != model.SeatStatusAvailable {
            conflicting = append(conflicting, id)
        }
    }
    if len(conflicting) > 0 {
        return nil, conflicting, nil
    }

    n, err := r.MarkHeldTx(ctx, tx, eventID, seatIDs, sessionID, heldUntil)
    if err != nil {
        return nil, nil, err
    }
    if n != int64(len(seatIDs)) {
        // Cannot happen while we hold the row locks; treat as conflict
        // rather than committing a partial hold.
        return nil, append([]uint64(nil), seatIDs...), nil
    }
    if err := r.RecountAvailableTx(ctx, tx, eventID); err != nil {
        return nil, nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, nil, err
    }
    committed = true

    held := heldUntil.UTC()
    session := sessionID
    out := make([]model.Seat, 0, len(seatIDs))
    for _, id := range seatIDs {
        s := locked[id]
        s.Status = model.SeatStatusHeld
        s.HeldUntil = &held
        s.HeldBySession = &session
        out = append(out, s)
    }
    return out, nil, nil
}

// Release transitions seats held by sessionID back to AVAILABLE and
// recomputes the event counter in one transaction.  It returns the number
// of rows actually released; rows not held by the session are untouched.
func (r *SeatRepo) Release(ctx context.Context, eventID uint64, seatIDs []uint64, sessionID string) (int64, error) {
    if len(seatIDs) == 0 {
        return 0, nil
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    released, err := r.ReleaseHeldTx(ctx, tx, eventID, seatIDs, sessionID)
    if err != nil {
        return 0, err
    }
    if err := r.RecountAvailableTx(ctx, tx, eventID); err != nil {
        return 0, err
    }
    if err := tx.Commit(); err != nil {
        return 0, err
    }
    committed = true
    return released, nil
}

// SweepEvent releases the expired holds of one event and recomputes its
// counter in one transaction.  The conditional update makes concurrent
// sweeps converge: whichever instance commits first does the work, the
// other updates zero rows.
func (r *SeatRepo) SweepEvent(ctx context.Context, eventID uint64, seatIDs []uint64, now time.Time) (int64, error) {
    if len(seatIDs) == 0 {
        return 0, nil
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    released, err := r.ReleaseExpiredTx(ctx, tx, eventID, seatIDs, now)
    if err != nil {
        return 0, err
    }
    if err := r.RecountAvailableTx(ctx, tx, eventID); err != nil {
        return 0, err
    }
    if err := tx.Commit(); err != nil {
        return 0, err
    }
    committed = true
    return released, nil
}
