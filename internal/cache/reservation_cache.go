package cache

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/ticket-inventory/internal/model"
)

// ReservationCache stores the ephemeral "which seats does session X hold"
// record, keyed by session ID with a TTL equal to the hold duration.  The
// record disappears on its own when the hold lapses, so an expired
// reservation reads as absent without any cleanup work.
type ReservationCache struct {
    rdb *redis.Client
    ttl time.Duration
}

// NewReservationCache returns a ReservationCache whose entries live for
// the hold duration.
func NewReservationCache(rdb *redis.Client, ttl time.Duration) *ReservationCache {
    return &ReservationCache{rdb: rdb, ttl: ttl}
}

func reservationKey(sessionID string) string {
    return fmt.Sprintf("reservation:%s", sessionID)
}

// Get returns the reservation for a session, or (nil, nil) when the
// session holds none or the record expired.
func (c *ReservationCache) Get(ctx context.Context, sessionID string) (*model.Reservation, error) {
    raw, err := c.rdb.Get(ctx, reservationKey(sessionID)).Bytes()
    if err == redis.Nil {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    var res model.Reservation
    if err := json.Unmarshal(raw, &res); err != nil {
        return nil, nil
    }
    return &res, nil
}

// Set stores the reservation record for its session.
func (c *ReservationCache) Set(ctx context.Context, res *model.Reservation) error {
    raw, err := json.Marshal(res)
    if err != nil {
        return err
    }
    return c.rdb.Set(ctx, reservationKey(res.SessionID), raw, c.ttl).Err()
}

// Delete removes the reservation record for a session.  Deleting an
// absent record is a no-op.
func (c *ReservationCache) Delete(ctx context.Context, sessionID string) error {
    return c.rdb.Del(ctx, reservationKey(sessionID)).Err()
}
