// Package service implements the two core subsystems: the seat inventory
// and reservation engine, and the virtual waiting room.  Services
// orchestrate the durable store, the distributed lock/cache/queue
// structures and the metrics facade; handlers above them deal only in
// plain data.
package service

import (
    "errors"
    "fmt"
    "sort"
)

// ErrStoreUnavailable signals that the durable store or the distributed
// store could not be reached.  The operation fails as a whole; there is
// deliberately no cache-only fallback for reservations.
var ErrStoreUnavailable = errors.New("store unavailable")

// ErrNotHoldOwner signals a release attempted by a session that does not
// hold the seats.  It is a no-op failure, not a fault.
var ErrNotHoldOwner = errors.New("seats not held by session")

// SeatsUnavailableError is the expected business outcome when some of the
// requested seats cannot be taken.  It names exactly the contended seats
// so clients can re-select; it is never retried by the core.
type SeatsUnavailableError struct {
    SeatIDs []uint64
}

func (e *SeatsUnavailableError) Error() string {
    return fmt.Sprintf("seats unavailable: %v", e.SeatIDs)
}

// newSeatsUnavailable builds the error with a sorted, deduplicated ID list
// so callers and logs see a stable ordering.
func newSeatsUnavailable(seatIDs []uint64) *SeatsUnavailableError {
    seen := make(map[uint64]struct{}, len(seatIDs))
    ids := make([]uint64, 0, len(seatIDs))
    for _, id := range seatIDs {
        if _, ok := seen[id]; !ok {
            seen[id] = struct{}{}
            ids = append(ids, id)
        }
    }
    sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
    return &SeatsUnavailableError{SeatIDs: ids}
}
