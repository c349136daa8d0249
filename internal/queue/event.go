// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationConfirmedEvent is published when seats are successfully placed
// on hold.  It contains enough information for downstream consumers to log,
// notify, or trigger analytics without querying the primary database.
type ReservationConfirmedEvent struct {
    Reference       string   `json:"reference"`
    SessionID       string   `json:"session_id"`
    EventID         uint64   `json:"event_id"`
    SeatIDs         []uint64 `json:"seat_ids"`
    SeatLabels      []string `json:"seats"`
    TotalPriceCents uint32   `json:"total_price_cents"`
    ExpiresAt       string   `json:"expires_at"`
    ReservedAt      string   `json:"reserved_at"`
}

// ReservationReleasedEvent is published when held seats return to the pool,
// either through an explicit release or the expiry sweep.
type ReservationReleasedEvent struct {
    SessionID  string   `json:"session_id,omitempty"`
    EventID    uint64   `json:"event_id"`
    SeatIDs    []uint64 `json:"seat_ids"`
    Cause      string   `json:"cause"` // "release" or "sweep"
    ReleasedAt string   `json:"released_at"`
}
