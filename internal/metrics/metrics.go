// Package metrics defines the Prometheus instruments the core services
// report into.  The services only call these facades; scraping and
// registration are wired in main via promhttp.
package metrics

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    // ReservationAttempts counts reserveSeats calls by outcome
    // ("success", "unavailable", "error").
    ReservationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "ticket_reservation_attempts_total",
        Help: "Total reservation attempts by outcome",
    }, []string{"outcome"})

    // SeatsReserved counts seats successfully transitioned to HELD.
    SeatsReserved = promauto.NewCounter(prometheus.CounterOpts{
        Name: "ticket_seats_reserved_total",
        Help: "Total seats successfully placed on hold",
    })

    // SeatsReleased counts seats returned to AVAILABLE, split by cause
    // ("release", "sweep").
    SeatsReleased = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "ticket_seats_released_total",
        Help: "Total seats returned to available by cause",
    }, []string{"cause"})

    // SweepRuns counts cleanup sweep invocations.
    SweepRuns = promauto.NewCounter(prometheus.CounterOpts{
        Name: "ticket_cleanup_sweeps_total",
        Help: "Total expired-hold sweep runs",
    })

    // QueueJoins counts waiting-room join requests by resulting state.
    QueueJoins = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "ticket_queue_joins_total",
        Help: "Total queue join calls by resulting state",
    }, []string{"state"})

    // SessionsAdmitted counts sessions promoted from waiting to active.
    SessionsAdmitted = promauto.NewCounter(prometheus.CounterOpts{
        Name: "ticket_sessions_admitted_total",
        Help: "Total sessions admitted from the waiting queue",
    })

    // QueueLength tracks the current waiting-queue length per event.
    QueueLength = promauto.NewGaugeVec(prometheus.GaugeOpts{
        Name: "ticket_queue_length",
        Help: "Current waiting queue length per event",
    }, []string{"event_id"})

    // ActiveSessions tracks the current active-set size per event.
    ActiveSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
        Name: "ticket_active_sessions",
        Help: "Current active session count per event",
    }, []string{"event_id"})
)
