package service

import (
    "context"
    "errors"
    "fmt"
    "sort"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/ticket-inventory/internal/model"
)

// memSeatStore is an in-memory SeatStore with the same all-or-nothing
// reserve semantics as the database repository.
type memSeatStore struct {
    mu         sync.Mutex
    seats      map[uint64]*model.Seat
    reserveErr error
    listErr    error
}

func newMemSeatStore(seats ...model.Seat) *memSeatStore {
    m := &memSeatStore{seats: make(map[uint64]*model.Seat, len(seats))}
    for i := range seats {
        s := seats[i]
        m.seats[s.ID] = &s
    }
    return m
}

func (m *memSeatStore) seat(id uint64) model.Seat {
    m.mu.Lock()
    defer m.mu.Unlock()
    return *m.seats[id]
}

func (m *memSeatStore) ListByEvent(_ context.Context, eventID uint64) ([]model.Seat, error) {
    if m.listErr != nil {
        return nil, m.listErr
    }
    m.mu.Lock()
    defer m.mu.Unlock()
    var out []model.Seat
    for _, s := range m.seats {
        if s.EventID == eventID {
            out = append(out, *s)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

func (m *memSeatStore) ListBySection(_ context.Context, eventID uint64, section string) ([]model.Seat, error) {
    if m.listErr != nil {
        return nil, m.listErr
    }
    m.mu.Lock()
    defer m.mu.Unlock()
    var out []model.Seat
    for _, s := range m.seats {
        if s.EventID == eventID && s.Section == section {
            out = append(out, *s)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

func (m *memSeatStore) ListByIDs(_ context.Context, eventID uint64, seatIDs []uint64) ([]model.Seat, error) {
    if m.listErr != nil {
        return nil, m.listErr
    }
    m.mu.Lock()
    defer m.mu.Unlock()
    var out []model.Seat
    for _, id := range seatIDs {
        if s, ok := m.seats[id]; ok && s.EventID == eventID {
            out = append(out, *s)
        }
    }
    return out, nil
}

func (m *memSeatStore) Reserve(_ context.Context, eventID uint64, seatIDs []uint64, sessionID string, heldUntil time.Time) ([]model.Seat, []uint64, error) {
    if m.reserveErr != nil {
        return nil, nil, m.reserveErr
    }
    m.mu.Lock()
    defer m.mu.Unlock()
    var conflicting []uint64
    for _, id := range seatIDs {
        s, ok := m.seats[id]
        if !ok || s.EventID != eventID || s.Status != model.SeatStatusAvailable {
            conflicting = append(conflicting, id)
        }
    }
    if len(conflicting) > 0 {
        return nil, conflicting, nil
    }
    out := make([]model.Seat, 0, len(seatIDs))
    for _, id := range seatIDs {
        s := m.seats[id]
        until := heldUntil
        owner := sessionID
        s.Status = model.SeatStatusHeld
        s.HeldUntil = &until
        s.HeldBySession = &owner
        out = append(out, *s)
    }
    return out, nil, nil
}

func (m *memSeatStore) Release(_ context.Context, eventID uint64, seatIDs []uint64, sessionID string) (int64, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var released int64
    for _, id := range seatIDs {
        s, ok := m.seats[id]
        if !ok || s.EventID != eventID || s.Status != model.SeatStatusHeld {
            continue
        }
        if s.HeldBySession == nil || *s.HeldBySession != sessionID {
            continue
        }
        s.Status = model.SeatStatusAvailable
        s.HeldUntil = nil
        s.HeldBySession = nil
        released++
    }
    return released, nil
}

func (m *memSeatStore) ExpiredHolds(_ context.Context, now time.Time) (map[uint64][]uint64, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    expired := make(map[uint64][]uint64)
    for _, s := range m.seats {
        if s.Status == model.SeatStatusHeld && s.HeldUntil != nil && s.HeldUntil.Before(now) {
            expired[s.EventID] = append(expired[s.EventID], s.ID)
        }
    }
    return expired, nil
}

func (m *memSeatStore) SweepEvent(_ context.Context, eventID uint64, seatIDs []uint64, now time.Time) (int64, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var released int64
    for _, id := range seatIDs {
        s, ok := m.seats[id]
        if !ok || s.EventID != eventID || s.Status != model.SeatStatusHeld {
            continue
        }
        if s.HeldUntil == nil || !s.HeldUntil.Before(now) {
            continue
        }
        s.Status = model.SeatStatusAvailable
        s.HeldUntil = nil
        s.HeldBySession = nil
        released++
    }
    return released, nil
}

// memLocker is an in-memory SeatLocker.
type memLocker struct {
    mu         sync.Mutex
    locks      map[string]string // key -> owning session
    acquireErr map[uint64]error  // per-seat injected acquire errors
}

func newMemLocker() *memLocker {
    return &memLocker{locks: make(map[string]string), acquireErr: make(map[uint64]error)}
}

func lockKey(eventID, seatID uint64) string { return fmt.Sprintf("%d:%d", eventID, seatID) }

func (l *memLocker) Acquire(_ context.Context, eventID, seatID uint64, sessionID string, _ time.Duration) (bool, error) {
    if err := l.acquireErr[seatID]; err != nil {
        return false, err
    }
    l.mu.Lock()
    defer l.mu.Unlock()
    key := lockKey(eventID, seatID)
    if _, held := l.locks[key]; held {
        return false, nil
    }
    l.locks[key] = sessionID
    return true, nil
}

func (l *memLocker) ReleaseIfOwner(_ context.Context, eventID, seatID uint64, sessionID string) (bool, error) {
    l.mu.Lock()
    defer l.mu.Unlock()
    key := lockKey(eventID, seatID)
    if l.locks[key] != sessionID {
        return false, nil
    }
    delete(l.locks, key)
    return true, nil
}

func (l *memLocker) Delete(_ context.Context, eventID, seatID uint64) error {
    l.mu.Lock()
    defer l.mu.Unlock()
    delete(l.locks, lockKey(eventID, seatID))
    return nil
}

func (l *memLocker) owner(eventID, seatID uint64) string {
    l.mu.Lock()
    defer l.mu.Unlock()
    return l.locks[lockKey(eventID, seatID)]
}

// memAvailability is an in-memory AvailabilityStore recording invalidations.
type memAvailability struct {
    mu          sync.Mutex
    data        map[uint64][]model.SectionAvailability
    invalidated int
    getErr      error
}

func newMemAvailability() *memAvailability {
    return &memAvailability{data: make(map[uint64][]model.SectionAvailability)}
}

func (a *memAvailability) Get(_ context.Context, eventID uint64) ([]model.SectionAvailability, error) {
    if a.getErr != nil {
        return nil, a.getErr
    }
    a.mu.Lock()
    defer a.mu.Unlock()
    return a.data[eventID], nil
}

func (a *memAvailability) Set(_ context.Context, eventID uint64, sections []model.SectionAvailability) error {
    a.mu.Lock()
    defer a.mu.Unlock()
    a.data[eventID] = sections
    return nil
}

func (a *memAvailability) Invalidate(_ context.Context, eventID uint64) error {
    a.mu.Lock()
    defer a.mu.Unlock()
    delete(a.data, eventID)
    a.invalidated++
    return nil
}

// memReservations is an in-memory ReservationStore.
type memReservations struct {
    mu   sync.Mutex
    data map[string]*model.Reservation
}

func newMemReservations() *memReservations {
    return &memReservations{data: make(map[string]*model.Reservation)}
}

func (r *memReservations) Get(_ context.Context, sessionID string) (*model.Reservation, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    res, ok := r.data[sessionID]
    if !ok {
        return nil, nil
    }
    cp := *res
    return &cp, nil
}

func (r *memReservations) Set(_ context.Context, res *model.Reservation) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    cp := *res
    r.data[res.SessionID] = &cp
    return nil
}

func (r *memReservations) Delete(_ context.Context, sessionID string) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    delete(r.data, sessionID)
    return nil
}

type reservationFixture struct {
    svc    *ReservationService
    seats  *memSeatStore
    locks  *memLocker
    avail  *memAvailability
    record *memReservations
    now    time.Time
}

func testSeat(id, eventID uint64, section string, price uint32) model.Seat {
    return model.Seat{
        ID:         id,
        EventID:    eventID,
        Section:    section,
        RowLabel:   "A",
        SeatNumber: uint32(id),
        PriceCents: price,
        PriceTier:  "STANDARD",
        Status:     model.SeatStatusAvailable,
    }
}

func newReservationFixture(t *testing.T, seats ...model.Seat) *reservationFixture {
    t.Helper()
    f := &reservationFixture{
        seats:  newMemSeatStore(seats...),
        locks:  newMemLocker(),
        avail:  newMemAvailability(),
        record: newMemReservations(),
        now:    time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
    }
    f.svc = NewReservationService(f.seats, f.locks, f.avail, f.record, 10*time.Minute, false)
    f.svc.now = func() time.Time { return f.now }
    return f
}

func TestReserveSeatsSuccess(t *testing.T) {
    f := newReservationFixture(t,
        testSeat(1, 7, "FLOOR", 5000),
        testSeat(2, 7, "FLOOR", 5000),
    )

    result, err := f.svc.ReserveSeats(context.Background(), "s1", 7, []uint64{1, 2})
    require.NoError(t, err)
    require.NotNil(t, result)
    assert.NotEmpty(t, result.Reference)
    assert.Len(t, result.Seats, 2)
    assert.Equal(t, f.now.Add(10*time.Minute), result.ExpiresAt)

    for _, id := range []uint64{1, 2} {
        seat := f.seats.seat(id)
        assert.Equal(t, model.SeatStatusHeld, seat.Status)
        require.NotNil(t, seat.HeldBySession)
        assert.Equal(t, "s1", *seat.HeldBySession)
        require.NotNil(t, seat.HeldUntil)
        assert.Equal(t, result.ExpiresAt, *seat.HeldUntil)
        assert.Equal(t, "s1", f.locks.owner(7, id))
    }

    rec, err := f.record.Get(context.Background(), "s1")
    require.NoError(t, err)
    require.NotNil(t, rec)
    assert.Equal(t, result.Reference, rec.Reference)
    assert.Equal(t, uint32(10000), rec.TotalPriceCents)
    assert.Equal(t, 1, f.avail.invalidated)
}

func TestReserveSeatsLockContention(t *testing.T) {
    f := newReservationFixture(t,
        testSeat(1, 7, "FLOOR", 5000),
        testSeat(2, 7, "FLOOR", 5000),
    )
    // Another session already holds the fast-path lock on seat 2.
    ok, err := f.locks.Acquire(context.Background(), 7, 2, "other", time.Minute)
    require.NoError(t, err)
    require.True(t, ok)

    _, err = f.svc.ReserveSeats(context.Background(), "s1", 7, []uint64{1, 2})
    var unavailable *SeatsUnavailableError
    require.ErrorAs(t, err, &unavailable)
    assert.Equal(t, []uint64{2}, unavailable.SeatIDs)

    // The lock acquired on seat 1 must have been compensated away, and
    // no seat row may have changed.
    assert.Empty(t, f.locks.owner(7, 1))
    assert.Equal(t, "other", f.locks.owner(7, 2))
    assert.Equal(t, model.SeatStatusAvailable, f.seats.seat(1).Status)
}

func TestReserveSeatsDatabaseConflict(t *testing.T) {
    held := testSeat(2, 7, "FLOOR", 5000)
    owner := "other"
    until := time.Date(2026, 6, 1, 12, 30, 0, 0, time.UTC)
    held.Status = model.SeatStatusHeld
    held.HeldBySession = &owner
    held.HeldUntil = &until

    f := newReservationFixture(t, testSeat(1, 7, "FLOOR", 5000), held)

    _, err := f.svc.ReserveSeats(context.Background(), "s1", 7, []uint64{1, 2})
    var unavailable *SeatsUnavailableError
    require.ErrorAs(t, err, &unavailable)
    assert.Equal(t, []uint64{2}, unavailable.SeatIDs)

    // All-or-nothing: seat 1 stays available and its lock is gone.
    assert.Equal(t, model.SeatStatusAvailable, f.seats.seat(1).Status)
    assert.Empty(t, f.locks.owner(7, 1))
}

func TestReserveSeatsStoreError(t *testing.T) {
    f := newReservationFixture(t, testSeat(1, 7, "FLOOR", 5000))
    f.seats.reserveErr = errors.New("connection refused")

    _, err := f.svc.ReserveSeats(context.Background(), "s1", 7, []uint64{1})
    require.ErrorIs(t, err, ErrStoreUnavailable)
    assert.Empty(t, f.locks.owner(7, 1))
}

func TestReserveSeatsLockErrorFailsClosed(t *testing.T) {
    f := newReservationFixture(t,
        testSeat(1, 7, "FLOOR", 5000),
        testSeat(2, 7, "FLOOR", 5000),
    )
    f.locks.acquireErr[2] = errors.New("redis timeout")

    _, err := f.svc.ReserveSeats(context.Background(), "s1", 7, []uint64{1, 2})
    var unavailable *SeatsUnavailableError
    require.ErrorAs(t, err, &unavailable)
    assert.Equal(t, []uint64{2}, unavailable.SeatIDs)
    assert.Equal(t, model.SeatStatusAvailable, f.seats.seat(1).Status)
    assert.Equal(t, model.SeatStatusAvailable, f.seats.seat(2).Status)
}

func TestReserveSeatsDeduplicatesIDs(t *testing.T) {
    f := newReservationFixture(t, testSeat(1, 7, "FLOOR", 5000))

    result, err := f.svc.ReserveSeats(context.Background(), "s1", 7, []uint64{1, 1, 0, 1})
    require.NoError(t, err)
    assert.Len(t, result.Seats, 1)
}

func TestReserveSeatsContention(t *testing.T) {
    // Two sessions race for an overlapping pair; at most one can win the
    // shared seat and the loser's locks are rolled back.
    f := newReservationFixture(t,
        testSeat(1, 7, "FLOOR", 5000),
        testSeat(2, 7, "FLOOR", 5000),
        testSeat(3, 7, "FLOOR", 5000),
    )

    _, err := f.svc.ReserveSeats(context.Background(), "s1", 7, []uint64{1, 2})
    require.NoError(t, err)

    _, err = f.svc.ReserveSeats(context.Background(), "s2", 7, []uint64{2, 3})
    var unavailable *SeatsUnavailableError
    require.ErrorAs(t, err, &unavailable)
    assert.Equal(t, []uint64{2}, unavailable.SeatIDs)

    // s1 keeps its hold; seat 3 is untouched and free for a retry.
    assert.Equal(t, "s1", *f.seats.seat(2).HeldBySession)
    assert.Equal(t, model.SeatStatusAvailable, f.seats.seat(3).Status)
    assert.Empty(t, f.locks.owner(7, 3))

    result, err := f.svc.ReserveSeats(context.Background(), "s2", 7, []uint64{3})
    require.NoError(t, err)
    assert.Len(t, result.Seats, 1)

    // Once s1 gives seat 2 back, a retry by s2 wins it.
    require.NoError(t, f.svc.ReleaseSeats(context.Background(), "s1", 7, []uint64{2}))
    result, err = f.svc.ReserveSeats(context.Background(), "s2", 7, []uint64{2})
    require.NoError(t, err)
    require.Len(t, result.Seats, 1)
    assert.Equal(t, "s2", *f.seats.seat(2).HeldBySession)
}

func TestReleaseSeatsPartial(t *testing.T) {
    f := newReservationFixture(t,
        testSeat(1, 7, "FLOOR", 5000),
        testSeat(2, 7, "FLOOR", 5000),
        testSeat(3, 7, "FLOOR", 5000),
    )
    _, err := f.svc.ReserveSeats(context.Background(), "s1", 7, []uint64{1, 2, 3})
    require.NoError(t, err)

    require.NoError(t, f.svc.ReleaseSeats(context.Background(), "s1", 7, []uint64{1, 2}))

    assert.Equal(t, model.SeatStatusAvailable, f.seats.seat(1).Status)
    assert.Equal(t, model.SeatStatusAvailable, f.seats.seat(2).Status)
    assert.Equal(t, model.SeatStatusHeld, f.seats.seat(3).Status)
    assert.Empty(t, f.locks.owner(7, 1))
    assert.Empty(t, f.locks.owner(7, 2))
    assert.Equal(t, "s1", f.locks.owner(7, 3))
}

func TestReleaseSeatsNotOwner(t *testing.T) {
    f := newReservationFixture(t, testSeat(1, 7, "FLOOR", 5000))
    _, err := f.svc.ReserveSeats(context.Background(), "s1", 7, []uint64{1})
    require.NoError(t, err)

    err = f.svc.ReleaseSeats(context.Background(), "intruder", 7, []uint64{1})
    require.ErrorIs(t, err, ErrNotHoldOwner)

    seat := f.seats.seat(1)
    assert.Equal(t, model.SeatStatusHeld, seat.Status)
    assert.Equal(t, "s1", *seat.HeldBySession)
    assert.Equal(t, "s1", f.locks.owner(7, 1))
}

func TestGetReservationHydratesSeats(t *testing.T) {
    f := newReservationFixture(t,
        testSeat(1, 7, "FLOOR", 5000),
        testSeat(2, 7, "BALCONY", 3000),
    )
    result, err := f.svc.ReserveSeats(context.Background(), "s1", 7, []uint64{1, 2})
    require.NoError(t, err)

    detail, err := f.svc.GetReservation(context.Background(), "s1")
    require.NoError(t, err)
    require.NotNil(t, detail)
    assert.Equal(t, result.Reference, detail.Reference)
    assert.Equal(t, uint32(8000), detail.TotalPriceCents)
    assert.Len(t, detail.Seats, 2)
}

func TestGetReservationMissing(t *testing.T) {
    f := newReservationFixture(t)
    detail, err := f.svc.GetReservation(context.Background(), "nobody")
    require.NoError(t, err)
    assert.Nil(t, detail)
}

func TestCleanupExpiredHolds(t *testing.T) {
    f := newReservationFixture(t,
        testSeat(1, 7, "FLOOR", 5000),
        testSeat(2, 7, "FLOOR", 5000),
        testSeat(3, 9, "FLOOR", 4000),
    )
    _, err := f.svc.ReserveSeats(context.Background(), "s1", 7, []uint64{1, 2})
    require.NoError(t, err)
    _, err = f.svc.ReserveSeats(context.Background(), "s2", 9, []uint64{3})
    require.NoError(t, err)
    f.avail.invalidated = 0

    // Advance past the hold duration and sweep.
    f.now = f.now.Add(11 * time.Minute)
    released, err := f.svc.CleanupExpiredHolds(context.Background())
    require.NoError(t, err)
    assert.Equal(t, 3, released)

    for _, id := range []uint64{1, 2, 3} {
        seat := f.seats.seat(id)
        assert.Equal(t, model.SeatStatusAvailable, seat.Status)
        assert.Nil(t, seat.HeldUntil)
        assert.Nil(t, seat.HeldBySession)
    }
    assert.Empty(t, f.locks.owner(7, 1))
    assert.Empty(t, f.locks.owner(9, 3))
    assert.Equal(t, 2, f.avail.invalidated)

    // A second sweep finds nothing.
    released, err = f.svc.CleanupExpiredHolds(context.Background())
    require.NoError(t, err)
    assert.Zero(t, released)
}

func TestCleanupLeavesLiveHolds(t *testing.T) {
    f := newReservationFixture(t, testSeat(1, 7, "FLOOR", 5000))
    _, err := f.svc.ReserveSeats(context.Background(), "s1", 7, []uint64{1})
    require.NoError(t, err)

    f.now = f.now.Add(5 * time.Minute)
    released, err := f.svc.CleanupExpiredHolds(context.Background())
    require.NoError(t, err)
    assert.Zero(t, released)
    assert.Equal(t, model.SeatStatusHeld, f.seats.seat(1).Status)
}

func TestGetAvailabilityAggregatesAndCaches(t *testing.T) {
    held := testSeat(3, 7, "FLOOR", 8000)
    owner := "someone"
    until := time.Date(2026, 6, 1, 12, 30, 0, 0, time.UTC)
    held.Status = model.SeatStatusHeld
    held.HeldBySession = &owner
    held.HeldUntil = &until

    f := newReservationFixture(t,
        testSeat(1, 7, "BALCONY", 3000),
        testSeat(2, 7, "FLOOR", 5000),
        held,
    )

    sections, err := f.svc.GetAvailability(context.Background(), 7, "")
    require.NoError(t, err)
    require.Len(t, sections, 2)

    // Sections come back sorted by name.
    assert.Equal(t, "BALCONY", sections[0].Section)
    floor := sections[1]
    assert.Equal(t, "FLOOR", floor.Section)
    assert.Equal(t, 2, floor.Total)
    assert.Equal(t, 1, floor.Available)
    assert.Equal(t, uint32(5000), floor.MinPriceCents)
    assert.Equal(t, uint32(8000), floor.MaxPriceCents)
    require.Len(t, floor.Seats, 1)
    assert.Equal(t, uint64(2), floor.Seats[0].ID)

    // The aggregation was cached; a degraded database no longer matters.
    f.seats.listErr = errors.New("db down")
    cached, err := f.svc.GetAvailability(context.Background(), 7, "FLOOR")
    require.NoError(t, err)
    require.Len(t, cached, 1)
    assert.Equal(t, "FLOOR", cached[0].Section)
}

func TestGetAvailabilityUnknownSection(t *testing.T) {
    f := newReservationFixture(t, testSeat(1, 7, "FLOOR", 5000))
    sections, err := f.svc.GetAvailability(context.Background(), 7, "VIP")
    require.NoError(t, err)
    assert.Empty(t, sections)
}

func TestGetAvailabilityCacheErrorFallsThrough(t *testing.T) {
    f := newReservationFixture(t, testSeat(1, 7, "FLOOR", 5000))
    f.avail.getErr = errors.New("redis down")

    sections, err := f.svc.GetAvailability(context.Background(), 7, "")
    require.NoError(t, err)
    require.Len(t, sections, 1)
    assert.Equal(t, 1, sections[0].Available)
}
