package service

import (
    "context"
    "fmt"
    "log"
    "sort"
    "strconv"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/ticket-inventory/internal/metrics"
    "github.com/iliyamo/ticket-inventory/internal/model"
    "github.com/iliyamo/ticket-inventory/internal/queue"
)

// SeatStore is the durable-store surface the reservation engine needs.
// *repository.SeatRepo satisfies it.
type SeatStore interface {
    ListByEvent(ctx context.Context, eventID uint64) ([]model.Seat, error)
    ListBySection(ctx context.Context, eventID uint64, section string) ([]model.Seat, error)
    ListByIDs(ctx context.Context, eventID uint64, seatIDs []uint64) ([]model.Seat, error)
    Reserve(ctx context.Context, eventID uint64, seatIDs []uint64, sessionID string, heldUntil time.Time) ([]model.Seat, []uint64, error)
    Release(ctx context.Context, eventID uint64, seatIDs []uint64, sessionID string) (int64, error)
    ExpiredHolds(ctx context.Context, now time.Time) (map[uint64][]uint64, error)
    SweepEvent(ctx context.Context, eventID uint64, seatIDs []uint64, now time.Time) (int64, error)
}

// SeatLocker is the fast-path lock surface.  *lockstore.SeatLockStore
// satisfies it.
type SeatLocker interface {
    Acquire(ctx context.Context, eventID, seatID uint64, sessionID string, ttl time.Duration) (bool, error)
    ReleaseIfOwner(ctx context.Context, eventID, seatID uint64, sessionID string) (bool, error)
    Delete(ctx context.Context, eventID, seatID uint64) error
}

// AvailabilityStore is the short-TTL availability summary cache surface.
// *cache.AvailabilityCache satisfies it.
type AvailabilityStore interface {
    Get(ctx context.Context, eventID uint64) ([]model.SectionAvailability, error)
    Set(ctx context.Context, eventID uint64, sections []model.SectionAvailability) error
    Invalidate(ctx context.Context, eventID uint64) error
}

// ReservationStore is the per-session reservation record surface.
// *cache.ReservationCache satisfies it.
type ReservationStore interface {
    Get(ctx context.Context, sessionID string) (*model.Reservation, error)
    Set(ctx context.Context, res *model.Reservation) error
    Delete(ctx context.Context, sessionID string) error
}

// ReservationDetail is a reservation enriched with the full seat rows,
// returned to checkout collaborators.
type ReservationDetail struct {
    model.Reservation
    Seats []model.Seat `json:"seats"`
}

// ReservationResult is the successful outcome of ReserveSeats.
type ReservationResult struct {
    Reference string       `json:"reference"`
    Seats     []model.Seat `json:"seats"`
    ExpiresAt time.Time    `json:"expires_at"`
}

// ReservationService owns the seat lifecycle: availability queries, the
// two-phase reserve, release, and the expiration sweep.  Seat state is
// always decided by the durable store; the Redis locks and caches are
// advisory layers that make the common paths fast.
type ReservationService struct {
    seats         SeatStore
    locks         SeatLocker
    availability  AvailabilityStore
    reservations  ReservationStore
    holdDuration  time.Duration
    publishEvents bool
    now           func() time.Time
}

// NewReservationService wires a ReservationService.  publishEvents enables
// AMQP notifications on reserve/release; the core never depends on them.
func NewReservationService(seats SeatStore, locks SeatLocker, availability AvailabilityStore, reservations ReservationStore, holdDuration time.Duration, publishEvents bool) *ReservationService {
    return &ReservationService{
        seats:         seats,
        locks:         locks,
        availability:  availability,
        reservations:  reservations,
        holdDuration:  holdDuration,
        publishEvents: publishEvents,
        now:           time.Now,
    }
}

// dedupeIDs drops zero and repeated seat IDs while preserving order.
func dedupeIDs(seatIDs []uint64) []uint64 {
    seen := make(map[uint64]struct{}, len(seatIDs))
    out := make([]uint64, 0, len(seatIDs))
    for _, id := range seatIDs {
        if id == 0 {
            continue
        }
        if _, ok := seen[id]; !ok {
            seen[id] = struct{}{}
            out = append(out, id)
        }
    }
    return out
}

// aggregateBySection groups seats into per-section availability summaries.
// Only AVAILABLE seats are listed in the summary's seat slice; totals and
// price bounds cover every seat of the section.
func aggregateBySection(seats []model.Seat) []model.SectionAvailability {
    bySection := make(map[string]*model.SectionAvailability)
    var order []string
    for _, s := range seats {
        agg, ok := bySection[s.Section]
        if !ok {
            agg = &model.SectionAvailability{
                Section:       s.Section,
                MinPriceCents: s.PriceCents,
                MaxPriceCents: s.PriceCents,
                Seats:         []model.Seat{},
            }
            bySection[s.Section] = agg
            order = append(order, s.Section)
        }
        agg.Total++
        if s.PriceCents < agg.MinPriceCents {
            agg.MinPriceCents = s.PriceCents
        }
        if s.PriceCents > agg.MaxPriceCents {
            agg.MaxPriceCents = s.PriceCents
        }
        if s.Status == model.SeatStatusAvailable {
            agg.Available++
            agg.Seats = append(agg.Seats, s)
        }
    }
    sort.Strings(order)
    out := make([]model.SectionAvailability, 0, len(order))
    for _, sec := range order {
        out = append(out, *bySection[sec])
    }
    return out
}

// GetAvailability returns per-section availability for an event, read from
// the short-TTL cache when possible.  When section is non-empty the result
// is filtered to that section.  An event with no seats yields an empty
// slice and nil error.
func (s *ReservationService) GetAvailability(ctx context.Context, eventID uint64, section string) ([]model.SectionAvailability, error) {
    sections, err := s.availability.Get(ctx, eventID)
    if err != nil {
        // A degraded cache must never block reads; fall through to the DB.
        log.Printf("reservation: availability cache read failed for event %d: %v", eventID, err)
        sections = nil
    }
    if sections == nil {
        seats, err := s.seats.ListByEvent(ctx, eventID)
        if err != nil {
            return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
        }
        sections = aggregateBySection(seats)
        if err := s.availability.Set(ctx, eventID, sections); err != nil {
            log.Printf("reservation: availability cache write failed for event %d: %v", eventID, err)
        }
    }
    if section == "" {
        return sections, nil
    }
    for _, sec := range sections {
        if sec.Section == section {
            return []model.SectionAvailability{sec}, nil
        }
    }
    return []model.SectionAvailability{}, nil
}

// GetSectionSeats returns the flat seat list of one section, straight from
// the durable store.  Seat-map rendering tolerates extra latency better
// than staleness, so this path is deliberately uncached.
func (s *ReservationService) GetSectionSeats(ctx context.Context, eventID uint64, section string) ([]model.Seat, error) {
    seats, err := s.seats.ListBySection(ctx, eventID, section)
    if err != nil {
        return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
    }
    return seats, nil
}

// ReserveSeats places a hold on the requested seats for sessionID using
// the two-phase protocol: advisory Redis locks first for cheap global
// rejection of contended seats, then the authoritative database commit
// under non-blocking row locks.  Phase-2 failure compensates by releasing
// every lock phase 1 acquired; even if that compensation itself fails the
// lock TTL bounds the damage.
func (s *ReservationService) ReserveSeats(ctx context.Context, sessionID string, eventID uint64, seatIDs []uint64) (*ReservationResult, error) {
    ids := dedupeIDs(seatIDs)
    if len(ids) == 0 {
        return nil, newSeatsUnavailable(nil)
    }

    // Phase 1: fast-path locks.  A Redis error counts as "could not
    // acquire" — when the cache degrades we fail closed, we never assume
    // a seat is free.
    var acquired, failed []uint64
    for _, id := range ids {
        ok, err := s.locks.Acquire(ctx, eventID, id, sessionID, s.holdDuration)
        if err != nil {
            log.Printf("reservation: lock acquire failed for seat %d: %v", id, err)
            ok = false
        }
        if ok {
            acquired = append(acquired, id)
        } else {
            failed = append(failed, id)
        }
    }
    if len(failed) > 0 {
        s.releaseLocks(ctx, eventID, acquired, sessionID)
        metrics.ReservationAttempts.WithLabelValues("unavailable").Inc()
        return nil, newSeatsUnavailable(failed)
    }

    // Phase 2: authoritative commit.
    heldUntil := s.now().UTC().Add(s.holdDuration)
    seats, conflicting, err := s.seats.Reserve(ctx, eventID, ids, sessionID, heldUntil)
    if err != nil {
        s.releaseLocks(ctx, eventID, acquired, sessionID)
        metrics.ReservationAttempts.WithLabelValues("error").Inc()
        return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
    }
    if len(conflicting) > 0 {
        s.releaseLocks(ctx, eventID, acquired, sessionID)
        metrics.ReservationAttempts.WithLabelValues("unavailable").Inc()
        return nil, newSeatsUnavailable(conflicting)
    }

    var total uint32
    for _, seat := range seats {
        total += seat.PriceCents
    }
    res := &model.Reservation{
        Reference:       uuid.NewString(),
        SessionID:       sessionID,
        EventID:         eventID,
        SeatIDs:         ids,
        TotalPriceCents: total,
        ExpiresAt:       heldUntil,
        CreatedAt:       s.now().UTC(),
    }
    // The hold is committed; cache bookkeeping failures are logged, not
    // surfaced.  A missing reservation record reads as "no reservation"
    // and the sweep reclaims the seats at held_until.
    if err := s.reservations.Set(ctx, res); err != nil {
        log.Printf("reservation: record cache write failed for session %s: %v", sessionID, err)
    }
    if err := s.availability.Invalidate(ctx, eventID); err != nil {
        log.Printf("reservation: availability invalidate failed for event %d: %v", eventID, err)
    }
    metrics.ReservationAttempts.WithLabelValues("success").Inc()
    metrics.SeatsReserved.Add(float64(len(seats)))

    if s.publishEvents {
        labels := make([]string, 0, len(seats))
        for _, seat := range seats {
            labels = append(labels, fmt.Sprintf("%s-%s%d", seat.Section, seat.RowLabel, seat.SeatNumber))
        }
        _ = PublishReservationConfirmed(ctx, queue.ReservationConfirmedEvent{
            Reference:       res.Reference,
            SessionID:       sessionID,
            EventID:         eventID,
            SeatIDs:         ids,
            SeatLabels:      labels,
            TotalPriceCents: total,
            ExpiresAt:       heldUntil.Format(time.RFC3339),
            ReservedAt:      res.CreatedAt.Format(time.RFC3339),
        })
    }

    return &ReservationResult{Reference: res.Reference, Seats: seats, ExpiresAt: heldUntil}, nil
}

// ReleaseSeats returns held seats to the pool.  Locks are released with
// compare-and-delete so a lock re-acquired by another session after this
// hold lapsed stays untouched.  The database update only matches rows held
// by sessionID; releasing seats the session does not hold fails with
// ErrNotHoldOwner and changes nothing.
func (s *ReservationService) ReleaseSeats(ctx context.Context, sessionID string, eventID uint64, seatIDs []uint64) error {
    ids := dedupeIDs(seatIDs)
    if len(ids) == 0 {
        return nil
    }
    s.releaseLocks(ctx, eventID, ids, sessionID)

    released, err := s.seats.Release(ctx, eventID, ids, sessionID)
    if err != nil {
        return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
    }
    if released == 0 {
        return ErrNotHoldOwner
    }
    if err := s.reservations.Delete(ctx, sessionID); err != nil {
        log.Printf("reservation: record cache delete failed for session %s: %v", sessionID, err)
    }
    if err := s.availability.Invalidate(ctx, eventID); err != nil {
        log.Printf("reservation: availability invalidate failed for event %d: %v", eventID, err)
    }
    metrics.SeatsReleased.WithLabelValues("release").Add(float64(released))

    if s.publishEvents {
        _ = PublishReservationReleased(ctx, queue.ReservationReleasedEvent{
            SessionID:  sessionID,
            EventID:    eventID,
            SeatIDs:    ids,
            Cause:      "release",
            ReleasedAt: s.now().UTC().Format(time.RFC3339),
        })
    }
    return nil
}

// releaseLocks compare-and-deletes the session's fast-path locks.  Errors
// are logged and otherwise ignored: the TTL is the second line of defense.
func (s *ReservationService) releaseLocks(ctx context.Context, eventID uint64, seatIDs []uint64, sessionID string) {
    for _, id := range seatIDs {
        if _, err := s.locks.ReleaseIfOwner(ctx, eventID, id, sessionID); err != nil {
            log.Printf("reservation: lock release failed for seat %d: %v", id, err)
        }
    }
}

// GetReservation returns the session's current reservation hydrated with
// full seat rows, or nil when the session holds none or the record
// expired.  The read never extends or mutates the hold.
func (s *ReservationService) GetReservation(ctx context.Context, sessionID string) (*ReservationDetail, error) {
    res, err := s.reservations.Get(ctx, sessionID)
    if err != nil {
        return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
    }
    if res == nil {
        return nil, nil
    }
    seats, err := s.seats.ListByIDs(ctx, res.EventID, res.SeatIDs)
    if err != nil {
        return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
    }
    return &ReservationDetail{Reservation: *res, Seats: seats}, nil
}

// CleanupExpiredHolds reconciles abandoned holds: every seat still HELD
// past its held_until goes back to AVAILABLE, one transaction per event,
// with the counter recomputed and the availability cache invalidated once
// per event.  Fast-path locks are deleted defensively (they are usually
// gone already via TTL).  The sweep is idempotent and safe to run
// concurrently from multiple instances; it returns the number of seats
// this invocation released.
func (s *ReservationService) CleanupExpiredHolds(ctx context.Context) (int, error) {
    metrics.SweepRuns.Inc()
    now := s.now().UTC()
    expired, err := s.seats.ExpiredHolds(ctx, now)
    if err != nil {
        return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
    }

    total := 0
    for eventID, seatIDs := range expired {
        released, err := s.seats.SweepEvent(ctx, eventID, seatIDs, now)
        if err != nil {
            // Leave this event's holds for the next sweep tick.
            log.Printf("reservation: sweep failed for event %d: %v", eventID, err)
            continue
        }
        for _, id := range seatIDs {
            if err := s.locks.Delete(ctx, eventID, id); err != nil {
                log.Printf("reservation: sweep lock delete failed for seat %d: %v", id, err)
            }
        }
        if err := s.availability.Invalidate(ctx, eventID); err != nil {
            log.Printf("reservation: availability invalidate failed for event %d: %v", eventID, err)
        }
        total += int(released)
        metrics.SeatsReleased.WithLabelValues("sweep").Add(float64(released))

        if s.publishEvents && released > 0 {
            _ = PublishReservationReleased(ctx, queue.ReservationReleasedEvent{
                EventID:    eventID,
                SeatIDs:    seatIDs,
                Cause:      "sweep",
                ReleasedAt: now.Format(time.RFC3339),
            })
        }
    }
    if total > 0 {
        log.Printf("reservation: sweep released %d expired seat hold(s)", total)
    }
    return total, nil
}

// eventLabel formats an event ID for metric labels.
func eventLabel(eventID uint64) string { return strconv.FormatUint(eventID, 10) }
