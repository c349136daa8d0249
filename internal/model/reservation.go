package model

import "time"

// Reservation is the ephemeral record of "which seats does this session
// currently hold, and until when".  It lives only in the distributed cache,
// keyed by session ID with a TTL equal to the hold duration, and is read by
// checkout collaborators to price and finalize a purchase.  A session holds
// at most one Reservation at a time.
//
// Fields:
//  Reference       – opaque reference ID handed to checkout collaborators.
//  SessionID       – session owning the hold.
//  EventID         – event the seats belong to.
//  SeatIDs         – seats covered by the hold.
//  TotalPriceCents – sum of the held seats' prices at reserve time.
//  ExpiresAt       – when the hold lapses if never confirmed or released.
//  CreatedAt       – when the reservation was made.
type Reservation struct {
    Reference       string    `json:"reference"`
    SessionID       string    `json:"session_id"`
    EventID         uint64    `json:"event_id"`
    SeatIDs         []uint64  `json:"seat_ids"`
    TotalPriceCents uint32    `json:"total_price_cents"`
    ExpiresAt       time.Time `json:"expires_at"`
    CreatedAt       time.Time `json:"created_at"`
}
