// Package lockstore implements the fast-path seat lock on top of Redis.
// A lock is a TTL'd key whose value is the owning session ID.  It is an
// advisory pre-check in front of the authoritative database transaction:
// it rejects contended seats in one round trip without touching the
// database, but is never trusted on its own to sell a seat.
package lockstore

import (
    "context"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"
)

// releaseScript deletes a lock only when its value still equals the owning
// session.  Check and delete happen in one script execution so the lock can
// never be released out from under a session that re-acquired it after the
// original TTL lapsed.  A separate GET-then-DEL pair would race exactly
// that window.
var releaseScript = redis.NewScript(`
    if redis.call("GET", KEYS[1]) == ARGV[1] then
        return redis.call("DEL", KEYS[1])
    end
    return 0
`)

// SeatLockStore wraps the Redis atomic primitives used for seat locking.
type SeatLockStore struct {
    rdb *redis.Client
}

// NewSeatLockStore returns a SeatLockStore bound to the provided client.
func NewSeatLockStore(rdb *redis.Client) *SeatLockStore {
    return &SeatLockStore{rdb: rdb}
}

// Key returns the lock key for a seat of an event.
func Key(eventID, seatID uint64) string {
    return fmt.Sprintf("seatlock:%d:%d", eventID, seatID)
}

// Acquire attempts to create the lock for sessionID with the given TTL.
// It returns true when this call created the lock, false when another
// session (or a previous call) already holds it.  Errors from Redis are
// returned as-is; callers must treat them as "could not acquire".
func (s *SeatLockStore) Acquire(ctx context.Context, eventID, seatID uint64, sessionID string, ttl time.Duration) (bool, error) {
    return s.rdb.SetNX(ctx, Key(eventID, seatID), sessionID, ttl).Result()
}

// ReleaseIfOwner deletes the lock only if sessionID still owns it.  It
// returns true when a lock was deleted.  Releasing a lock that expired or
// was re-acquired by someone else is a no-op.
func (s *SeatLockStore) ReleaseIfOwner(ctx context.Context, eventID, seatID uint64, sessionID string) (bool, error) {
    n, err := releaseScript.Run(ctx, s.rdb, []string{Key(eventID, seatID)}, sessionID).Int()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// Delete removes the lock unconditionally.  The expiry sweep uses it to
// clear locks whose database hold already lapsed; the key may well be gone
// already via its own TTL, which is fine.
func (s *SeatLockStore) Delete(ctx context.Context, eventID, seatID uint64) error {
    return s.rdb.Del(ctx, Key(eventID, seatID)).Err()
}

// Owner reports the session currently holding the lock, or "" when the
// lock does not exist.
func (s *SeatLockStore) Owner(ctx context.Context, eventID, seatID uint64) (string, error) {
    v, err := s.rdb.Get(ctx, Key(eventID, seatID)).Result()
    if err == redis.Nil {
        return "", nil
    }
    if err != nil {
        return "", err
    }
    return v, nil
}
