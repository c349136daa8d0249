package model

import "time"

// Seat statuses as stored in the seats.status column.  A seat cycles
// AVAILABLE ↔ HELD → SOLD for its lifetime and never reverts from SOLD.
const (
    SeatStatusAvailable = "AVAILABLE"
    SeatStatusHeld      = "HELD"
    SeatStatusSold      = "SOLD"
)

// Seat describes a single sellable seat of an event.  The hold fields obey
// a strict pairing invariant: status HELD implies both HeldUntil and
// HeldBySession are set, any other status implies both are nil.  The
// durable seat row is the single source of truth for seat state; the Redis
// fast-path lock layered on top is advisory only.
//
// Fields:
//  ID            – primary key identifier.
//  EventID       – event to which this seat belongs.
//  Section       – section label (e.g. "FLOOR", "BALCONY").
//  RowLabel      – letter or string designating the row.
//  SeatNumber    – number of the seat within the row.
//  PriceCents    – price of the seat in cents.
//  PriceTier     – pricing tier label (e.g. "PREMIUM", "STANDARD").
//  Status        – one of the SeatStatus* constants.
//  HeldUntil     – when the current hold expires (nil unless HELD).
//  HeldBySession – session owning the current hold (nil unless HELD).
type Seat struct {
    ID            uint64     // seats.id
    EventID       uint64     // seats.event_id
    Section       string     // seats.section
    RowLabel      string     // seats.row_label
    SeatNumber    uint32     // seats.seat_number
    PriceCents    uint32     // seats.price_cents
    PriceTier     string     // seats.price_tier
    Status        string     // seats.status
    HeldUntil     *time.Time // seats.held_until (nullable)
    HeldBySession *string    // seats.held_by_session (nullable)
    CreatedAt     time.Time  // seats.created_at
    UpdatedAt     time.Time  // seats.updated_at
}

// SectionAvailability is the per-section aggregation returned by the
// availability query and stored in the short-TTL availability cache.
// Seats contains only the seats still AVAILABLE so that clients can render
// a pick list without a second round trip.
type SectionAvailability struct {
    Section       string `json:"section"`
    Available     int    `json:"available"`
    Total         int    `json:"total"`
    MinPriceCents uint32 `json:"min_price_cents"`
    MaxPriceCents uint32 `json:"max_price_cents"`
    Seats         []Seat `json:"seats"`
}
