// Package cache provides the short-TTL read-through caches layered over the
// durable store: the per-event availability summary and the per-session
// reservation record.  Both are performance aids, never authorities; a
// cache miss or a Redis failure always falls back to the database (or, for
// reservations, to "no reservation").
package cache

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/ticket-inventory/internal/model"
)

// AvailabilityCache stores the aggregated per-section availability of an
// event as a single JSON value per event.  One key per event keeps
// invalidation a single DEL; section filtering happens in memory on read.
// The TTL is short (seconds) because under sale pressure a stale summary
// is worse than the extra aggregation queries.
type AvailabilityCache struct {
    rdb *redis.Client
    ttl time.Duration
}

// NewAvailabilityCache returns an AvailabilityCache with the given TTL.
func NewAvailabilityCache(rdb *redis.Client, ttl time.Duration) *AvailabilityCache {
    return &AvailabilityCache{rdb: rdb, ttl: ttl}
}

func availabilityKey(eventID uint64) string {
    return fmt.Sprintf("availability:%d", eventID)
}

// Get returns the cached aggregation for an event, or (nil, nil) on a
// cache miss.  Unmarshalling failures are treated as misses so a corrupt
// entry self-heals on the next write.
func (c *AvailabilityCache) Get(ctx context.Context, eventID uint64) ([]model.SectionAvailability, error) {
    raw, err := c.rdb.Get(ctx, availabilityKey(eventID)).Bytes()
    if err == redis.Nil {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    var sections []model.SectionAvailability
    if err := json.Unmarshal(raw, &sections); err != nil {
        return nil, nil
    }
    return sections, nil
}

// Set stores the aggregation for an event with the configured TTL.
func (c *AvailabilityCache) Set(ctx context.Context, eventID uint64, sections []model.SectionAvailability) error {
    raw, err := json.Marshal(sections)
    if err != nil {
        return err
    }
    return c.rdb.Set(ctx, availabilityKey(eventID), raw, c.ttl).Err()
}

// Invalidate drops the cached aggregation for an event.  Every seat-status
// write calls this so the next availability read reflects the change.
func (c *AvailabilityCache) Invalidate(ctx context.Context, eventID uint64) error {
    return c.rdb.Del(ctx, availabilityKey(eventID)).Err()
}
