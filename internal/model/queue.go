package model

// Waiting-room states for a (event, session) pair.  A session moves
// not_in_queue → waiting → active and falls back to not_in_queue when its
// active-session marker expires or it leaves explicitly.
const (
    QueueStateNotInQueue = "not_in_queue"
    QueueStateWaiting    = "waiting"
    QueueStateActive     = "active"
)

// QueueStatus is the per-session view of the waiting room returned by join
// and status calls.  Position is 1-based and only meaningful while waiting.
// EstimatedWaitSeconds is a UX signal derived from a linear admission-rate
// model, not a correctness-bearing value.
type QueueStatus struct {
    Status               string `json:"status"`
    Position             int64  `json:"position,omitempty"`
    EstimatedWaitSeconds int64  `json:"estimated_wait_seconds,omitempty"`
    AdmissionToken       string `json:"admission_token,omitempty"`
}

// QueueStats is the per-event aggregate view used by dashboards.
type QueueStats struct {
    QueueLength          int64 `json:"queue_length"`
    ActiveCount          int64 `json:"active_count"`
    EstimatedWaitSeconds int64 `json:"estimated_wait_seconds"`
}
