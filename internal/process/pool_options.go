package process

import "github.com/smazurov/volcaprep/internal/logging"

// StateChangeCallback is called when a job state changes. oldState is empty
// for the initial transition to queued. Called from worker goroutines.
type StateChangeCallback func(id string, oldState, newState State, err error)

// PoolOptions configures a new Pool.
type PoolOptions struct {
	// Workers bounds concurrently running jobs. Values below 1 mean 1.
	Workers int

	// FailFast cancels the pool on the first job error: queued jobs are
	// marked canceled and running jobs see their context cancelled.
	FailFast bool

	// OnStateChange is called when a job state transitions (optional).
	OnStateChange StateChangeCallback

	// Logger for pool operations. If nil, uses slog.Default().
	Logger logging.Logger
}
