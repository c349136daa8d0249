// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// reservation service to distinguish between different failure scenarios.
// ErrRowLocked in particular is how the NOWAIT row-lock mode surfaces:
// contention on a seat row is reported immediately instead of queueing the
// transaction, and the service converts it into a retry-able
// seats-unavailable outcome.
package repository

import "errors"

// ErrEventNotFound is returned when the requested event does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrRowLocked is returned when a SELECT ... FOR UPDATE NOWAIT could not
// acquire its row locks because another transaction holds them. It is an
// expected outcome under contention, not a fault.
var ErrRowLocked = errors.New("row locked by another transaction")
