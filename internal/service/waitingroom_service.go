package service

import (
    "context"
    "fmt"
    "log"
    "math/rand"
    "sync"
    "time"

    "github.com/iliyamo/ticket-inventory/internal/metrics"
    "github.com/iliyamo/ticket-inventory/internal/model"
    "github.com/iliyamo/ticket-inventory/internal/utils"
)

// QueueStore is the distributed-store surface the waiting room needs.
// *waitingroom.Store satisfies it.  Unlike the reservation engine, the
// queue structures ARE authoritative here: admission has no durable-store
// analog.
type QueueStore interface {
    Enqueue(ctx context.Context, eventID uint64, sessionID string, score float64) (bool, error)
    Rank(ctx context.Context, eventID uint64, sessionID string) (int64, bool, error)
    IsActive(ctx context.Context, eventID uint64, sessionID string) (bool, error)
    AdmitBatch(ctx context.Context, eventID uint64, maxConcurrent int, markerTTL time.Duration) ([]string, error)
    Remove(ctx context.Context, eventID uint64, sessionID string) error
    QueueLength(ctx context.Context, eventID uint64) (int64, error)
    ActiveCount(ctx context.Context, eventID uint64) (int64, error)
}

// scoreFunc builds the queue score for a join at the given time.  It is a
// field so tests can pin deterministic scores.
type scoreFunc func(now time.Time) float64

// joinScore is the production score: the wall-clock join time in
// milliseconds plus a sub-millisecond random jitter.  The jitter breaks
// exact ties between near-simultaneous joins fairly without materially
// affecting ordering.
func joinScore(now time.Time) float64 {
    return float64(now.UnixMilli()) + rand.Float64()
}

// WaitingRoomService owns the fair admission queue: who is waiting, who
// may browse, and the per-event processors that promote waiters on a
// fixed cadence.  Admission order is strict FIFO by enqueue time within
// an event.
type WaitingRoomService struct {
    store            QueueStore
    activeSessionTTL time.Duration
    admissionRate    int
    interval         time.Duration
    jwtSecret        string
    score            scoreFunc
    now              func() time.Time

    mu         sync.Mutex
    processors map[uint64]chan struct{}
}

// NewWaitingRoomService wires a WaitingRoomService.  admissionRate is the
// tuned admissions-per-second constant behind the estimated-wait model;
// interval is the cadence of the per-event processors.
func NewWaitingRoomService(store QueueStore, activeSessionTTL time.Duration, admissionRate int, interval time.Duration, jwtSecret string) *WaitingRoomService {
    if admissionRate < 1 {
        admissionRate = 1
    }
    return &WaitingRoomService{
        store:            store,
        activeSessionTTL: activeSessionTTL,
        admissionRate:    admissionRate,
        interval:         interval,
        jwtSecret:        jwtSecret,
        score:            joinScore,
        now:              time.Now,
        processors:       make(map[uint64]chan struct{}),
    }
}

// estimatedWait converts a 1-based queue position into seconds using the
// linear admission-rate model: ceil(position / rate).  A UX signal only.
func (s *WaitingRoomService) estimatedWait(position int64) int64 {
    if position <= 0 {
        return 0
    }
    rate := int64(s.admissionRate)
    return (position + rate - 1) / rate
}

// activeStatus builds the status payload for an admitted session,
// including a signed admission token checkout collaborators can verify.
func (s *WaitingRoomService) activeStatus(eventID uint64, sessionID string) model.QueueStatus {
    st := model.QueueStatus{Status: model.QueueStateActive}
    tok, err := utils.NewAdmissionToken(s.jwtSecret, sessionID, eventID, s.activeSessionTTL)
    if err != nil {
        log.Printf("waitingroom: admission token signing failed for session %s: %v", sessionID, err)
        return st
    }
    st.AdmissionToken = tok.Token
    return st
}

// JoinQueue places a session into the event's waiting queue, or reports
// its existing state.  The call is idempotent: an active session stays
// active, a waiting session keeps its original position, only a new
// session is enqueued (scored by join time plus a small tie-breaking
// jitter).
func (s *WaitingRoomService) JoinQueue(ctx context.Context, eventID uint64, sessionID string) (model.QueueStatus, error) {
    active, err := s.store.IsActive(ctx, eventID, sessionID)
    if err != nil {
        return model.QueueStatus{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
    }
    if active {
        metrics.QueueJoins.WithLabelValues(model.QueueStateActive).Inc()
        return s.activeStatus(eventID, sessionID), nil
    }

    if _, err := s.store.Enqueue(ctx, eventID, sessionID, s.score(s.now())); err != nil {
        return model.QueueStatus{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
    }
    rank, ok, err := s.store.Rank(ctx, eventID, sessionID)
    if err != nil {
        return model.QueueStatus{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
    }
    if !ok {
        // Admitted between the enqueue and the rank read.
        metrics.QueueJoins.WithLabelValues(model.QueueStateActive).Inc()
        return s.activeStatus(eventID, sessionID), nil
    }
    position := rank + 1
    metrics.QueueJoins.WithLabelValues(model.QueueStateWaiting).Inc()
    return model.QueueStatus{
        Status:               model.QueueStateWaiting,
        Position:             position,
        EstimatedWaitSeconds: s.estimatedWait(position),
    }, nil
}

// GetQueueStatus reports the session's current state without mutating
// anything.
func (s *WaitingRoomService) GetQueueStatus(ctx context.Context, eventID uint64, sessionID string) (model.QueueStatus, error) {
    active, err := s.store.IsActive(ctx, eventID, sessionID)
    if err != nil {
        return model.QueueStatus{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
    }
    if active {
        return s.activeStatus(eventID, sessionID), nil
    }
    rank, ok, err := s.store.Rank(ctx, eventID, sessionID)
    if err != nil {
        return model.QueueStatus{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
    }
    if !ok {
        return model.QueueStatus{Status: model.QueueStateNotInQueue}, nil
    }
    position := rank + 1
    return model.QueueStatus{
        Status:               model.QueueStateWaiting,
        Position:             position,
        EstimatedWaitSeconds: s.estimatedWait(position),
    }, nil
}

// IsSessionActive reports whether the session's TTL'd active marker is
// alive.  The marker is the authoritative timeout, not set membership.
func (s *WaitingRoomService) IsSessionActive(ctx context.Context, eventID uint64, sessionID string) (bool, error) {
    active, err := s.store.IsActive(ctx, eventID, sessionID)
    if err != nil {
        return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
    }
    return active, nil
}

// AdmitNextBatch promotes the earliest waiters into the active set, up to
// maxConcurrent total active sessions, and returns how many were admitted.
// The underlying store transition is atomic, so concurrent invocations
// from redundant schedulers cannot double-admit; extra ticks simply find
// no free slots.
func (s *WaitingRoomService) AdmitNextBatch(ctx context.Context, eventID uint64, maxConcurrent int) (int, error) {
    admitted, err := s.store.AdmitBatch(ctx, eventID, maxConcurrent, s.activeSessionTTL)
    if err != nil {
        return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
    }
    if n := len(admitted); n > 0 {
        metrics.SessionsAdmitted.Add(float64(n))
        log.Printf("waitingroom: admitted %d session(s) for event %d", n, eventID)
    }
    s.updateGauges(ctx, eventID)
    return len(admitted), nil
}

// LeaveQueue removes the session from the waiting room entirely,
// whichever state it was in.  Idempotent.
func (s *WaitingRoomService) LeaveQueue(ctx context.Context, eventID uint64, sessionID string) error {
    if err := s.store.Remove(ctx, eventID, sessionID); err != nil {
        return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
    }
    return nil
}

// GetQueueStats returns the aggregate queue view for dashboards.
func (s *WaitingRoomService) GetQueueStats(ctx context.Context, eventID uint64) (model.QueueStats, error) {
    length, err := s.store.QueueLength(ctx, eventID)
    if err != nil {
        return model.QueueStats{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
    }
    active, err := s.store.ActiveCount(ctx, eventID)
    if err != nil {
        return model.QueueStats{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
    }
    return model.QueueStats{
        QueueLength:          length,
        ActiveCount:          active,
        EstimatedWaitSeconds: s.estimatedWait(length),
    }, nil
}

// updateGauges refreshes the per-event queue gauges.  Failures only cost
// metric freshness, so they are logged and swallowed.
func (s *WaitingRoomService) updateGauges(ctx context.Context, eventID uint64) {
    if length, err := s.store.QueueLength(ctx, eventID); err == nil {
        metrics.QueueLength.WithLabelValues(eventLabel(eventID)).Set(float64(length))
    }
    if active, err := s.store.ActiveCount(ctx, eventID); err == nil {
        metrics.ActiveSessions.WithLabelValues(eventLabel(eventID)).Set(float64(active))
    }
}

// StartQueueProcessor launches the recurring admitter for one event: a
// goroutine ticking at the configured interval and calling AdmitNextBatch.
// One processor per event per process; starting an already-running
// processor is a no-op.  Multiple processes may each run their own
// processor safely because AdmitBatch is atomic.
func (s *WaitingRoomService) StartQueueProcessor(eventID uint64, maxConcurrent int) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, running := s.processors[eventID]; running {
        return
    }
    stop := make(chan struct{})
    s.processors[eventID] = stop
    go s.processLoop(eventID, maxConcurrent, stop)
    log.Printf("waitingroom: queue processor started for event %d (max %d active)", eventID, maxConcurrent)
}

// StopQueueProcessor stops the event's processor if one is running.
// Stopping a non-running processor is a no-op.
func (s *WaitingRoomService) StopQueueProcessor(eventID uint64) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if stop, running := s.processors[eventID]; running {
        close(stop)
        delete(s.processors, eventID)
        log.Printf("waitingroom: queue processor stopped for event %d", eventID)
    }
}

// StopAllProcessors stops every running processor.  Called on shutdown.
func (s *WaitingRoomService) StopAllProcessors() {
    s.mu.Lock()
    defer s.mu.Unlock()
    for eventID, stop := range s.processors {
        close(stop)
        delete(s.processors, eventID)
    }
}

// ProcessorRunning reports whether a processor is registered for the
// event.
func (s *WaitingRoomService) ProcessorRunning(eventID uint64) bool {
    s.mu.Lock()
    defer s.mu.Unlock()
    _, running := s.processors[eventID]
    return running
}

func (s *WaitingRoomService) processLoop(eventID uint64, maxConcurrent int, stop chan struct{}) {
    ticker := time.NewTicker(s.interval)
    defer ticker.Stop()
    for {
        select {
        case <-ticker.C:
            ctx, cancel := context.WithTimeout(context.Background(), s.interval)
            if _, err := s.AdmitNextBatch(ctx, eventID, maxConcurrent); err != nil {
                log.Printf("waitingroom: admit tick failed for event %d: %v", eventID, err)
            }
            cancel()
        case <-stop:
            return
        }
    }
}
