// Package waitingroom implements the Redis data structures behind the
// admission controller: a per-event sorted set of waiting sessions scored
// by join time, a per-event set of currently active sessions, and a TTL'd
// marker key per active session whose expiry is the authoritative session
// timeout.  All multi-key transitions run as Lua scripts so concurrent
// server instances can never double-admit or half-admit a session.
package waitingroom

import (
    "context"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"
)

// admitScript promotes the earliest waiting sessions into the active set.
// It first prunes active members whose marker expired, computes the free
// slots, then pops exactly that many entries from the front of the queue,
// adding each to the active set with a fresh marker.  Running the whole
// transition as one script gives the pop-remove-add sequence the atomicity
// the fairness guarantee depends on: redundant concurrent ticks simply
// find zero slots or an empty queue.
var admitScript = redis.NewScript(`
    local waiting = KEYS[1]
    local active = KEYS[2]
    local max_active = tonumber(ARGV[1])
    local marker_ttl = tonumber(ARGV[2])
    local marker_prefix = ARGV[3]

    local members = redis.call("SMEMBERS", active)
    for i = 1, #members do
        if redis.call("EXISTS", marker_prefix .. members[i]) == 0 then
            redis.call("SREM", active, members[i])
        end
    end

    local slots = max_active - redis.call("SCARD", active)
    if slots <= 0 then
        return {}
    end

    local admitted = redis.call("ZRANGE", waiting, 0, slots - 1)
    for i = 1, #admitted do
        redis.call("ZREM", waiting, admitted[i])
        redis.call("SADD", active, admitted[i])
        redis.call("SET", marker_prefix .. admitted[i], "1", "EX", marker_ttl)
    end
    return admitted
`)

// Store wraps the Redis keys of one deployment's waiting rooms.
type Store struct {
    rdb *redis.Client
}

// NewStore returns a Store bound to the provided client.
func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func waitingKey(eventID uint64) string { return fmt.Sprintf("queue:waiting:%d", eventID) }
func activeKey(eventID uint64) string  { return fmt.Sprintf("queue:active:%d", eventID) }
func markerPrefix(eventID uint64) string {
    return fmt.Sprintf("queue:marker:%d:", eventID)
}

// Enqueue inserts the session into the event's waiting queue with the
// given score.  The NX flag keeps a re-join from resetting an existing
// position.  It returns true when the session was newly enqueued.
func (s *Store) Enqueue(ctx context.Context, eventID uint64, sessionID string, score float64) (bool, error) {
    n, err := s.rdb.ZAddNX(ctx, waitingKey(eventID), redis.Z{Score: score, Member: sessionID}).Result()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// Rank returns the 0-based queue position of a session, or ok=false when
// the session is not waiting.
func (s *Store) Rank(ctx context.Context, eventID uint64, sessionID string) (int64, bool, error) {
    rank, err := s.rdb.ZRank(ctx, waitingKey(eventID), sessionID).Result()
    if err == redis.Nil {
        return 0, false, nil
    }
    if err != nil {
        return 0, false, err
    }
    return rank, true, nil
}

// IsActive reports whether the session's active marker is still alive.
// The marker, not the set membership, is the authoritative timeout: a
// session whose marker lapsed is no longer active even if the set has not
// been pruned yet.
func (s *Store) IsActive(ctx context.Context, eventID uint64, sessionID string) (bool, error) {
    n, err := s.rdb.Exists(ctx, markerPrefix(eventID)+sessionID).Result()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// AdmitBatch atomically promotes up to maxConcurrent-minus-active sessions
// from the front of the queue, giving each a marker with the provided TTL.
// It returns the admitted session IDs in admission order.
func (s *Store) AdmitBatch(ctx context.Context, eventID uint64, maxConcurrent int, markerTTL time.Duration) ([]string, error) {
    keys := []string{waitingKey(eventID), activeKey(eventID)}
    args := []interface{}{maxConcurrent, int(markerTTL / time.Second), markerPrefix(eventID)}
    return admitScript.Run(ctx, s.rdb, keys, args...).StringSlice()
}

// Remove drops the session from the queue, the active set and its marker,
// whichever of those exist.  Removing an absent session is a no-op.
func (s *Store) Remove(ctx context.Context, eventID uint64, sessionID string) error {
    pipe := s.rdb.TxPipeline()
    pipe.ZRem(ctx, waitingKey(eventID), sessionID)
    pipe.SRem(ctx, activeKey(eventID), sessionID)
    pipe.Del(ctx, markerPrefix(eventID)+sessionID)
    _, err := pipe.Exec(ctx)
    return err
}

// QueueLength returns the number of waiting sessions for an event.
func (s *Store) QueueLength(ctx context.Context, eventID uint64) (int64, error) {
    return s.rdb.ZCard(ctx, waitingKey(eventID)).Result()
}

// ActiveCount returns the size of the active set.  It may briefly include
// members whose marker already expired; the next admit tick prunes them.
func (s *Store) ActiveCount(ctx context.Context, eventID uint64) (int64, error) {
    return s.rdb.SCard(ctx, activeKey(eventID)).Result()
}
