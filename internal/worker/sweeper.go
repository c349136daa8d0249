package worker

import (
    "context"
    "log"
    "time"

    "github.com/go-co-op/gocron/v2"

    "github.com/iliyamo/ticket-inventory/internal/service"
)

// Sweeper runs the expired-hold reclamation on a fixed schedule.  Every
// instance of the service runs its own sweeper; the sweep itself is
// idempotent, so overlapping runs across instances only cost redundant
// no-op updates.
type Sweeper struct {
    scheduler gocron.Scheduler
    interval  time.Duration
}

// NewSweeper schedules CleanupExpiredHolds every interval on a fresh
// scheduler.  Call Start to begin ticking and Stop on shutdown.
func NewSweeper(reservations *service.ReservationService, interval time.Duration) (*Sweeper, error) {
    scheduler, err := gocron.NewScheduler()
    if err != nil {
        return nil, err
    }
    _, err = scheduler.NewJob(
        gocron.DurationJob(interval),
        gocron.NewTask(func() {
            ctx, cancel := context.WithTimeout(context.Background(), interval)
            defer cancel()
            if _, err := reservations.CleanupExpiredHolds(ctx); err != nil {
                log.Printf("sweeper: cleanup run failed: %v", err)
            }
        }),
    )
    if err != nil {
        _ = scheduler.Shutdown()
        return nil, err
    }
    return &Sweeper{scheduler: scheduler, interval: interval}, nil
}

// Start launches the scheduler's goroutines.
func (s *Sweeper) Start() {
    s.scheduler.Start()
    log.Printf("sweeper: expired-hold cleanup scheduled every %s", s.interval)
}

// Stop shuts the scheduler down and waits for an in-flight run to finish.
func (s *Sweeper) Stop() {
    if err := s.scheduler.Shutdown(); err != nil {
        log.Printf("sweeper: shutdown error: %v", err)
    }
}
