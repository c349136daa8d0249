package model

import "time"

// Event statuses as stored in the events.status column.  Events are owned
// by the external catalog service; this core only reads them and maintains
// the denormalized available_seats counter.
const (
    EventStatusOnSale   = "ON_SALE"
    EventStatusSoldOut  = "SOLD_OUT"
    EventStatusFinished = "FINISHED"
)

// Event describes a sellable event.  AvailableSeats is a denormalized
// counter kept equal to the number of AVAILABLE seat rows; it is always
// recomputed from the seats table inside the same transaction as any seat
// status write rather than incremented, so partial failures can never make
// it drift permanently.
//
// Fields:
//  ID             – primary key identifier.
//  Name           – display name of the event.
//  Status         – one of the EventStatus* constants.
//  AvailableSeats – count of seats currently in AVAILABLE status.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Event struct {
    ID             uint64    // events.id
    Name           string    // events.name
    Status         string    // events.status
    AvailableSeats uint32    // events.available_seats
    CreatedAt      time.Time // events.created_at
    UpdatedAt      time.Time // events.updated_at
}
