package process

import "time"

// State represents the current state of a pool job.
type State string

// Job states.
const (
	StateQueued   State = "queued"   // Waiting for a worker
	StateRunning  State = "running"  // Active
	StateDone     State = "done"     // Finished without error
	StateError    State = "error"    // Returned an error
	StateCanceled State = "canceled" // Never ran because the pool was cancelled
)

// Info contains information about a pool job.
type Info struct {
	ID         string
	State      State
	StartedAt  time.Time
	FinishedAt time.Time
	LastError  error
}
