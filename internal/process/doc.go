// Package process runs external tools.
//
// Executor wraps os/exec for one-shot tool invocations:
//   - Per-invocation timeout, reported as ErrTimeout
//   - Graceful stop with SIGINT to the process group, SIGKILL after a grace period
//   - Output captured for the caller and streamed to a per-tool logger through a LogParser
//
// Runner is the interface callers depend on; tests substitute RunnerFunc fakes.
//
// Pool runs jobs on a bounded set of workers:
//   - Job state tracking (queued, running, done, error, canceled)
//   - OnStateChange hook for progress reporting
//   - FailFast mode for all-or-nothing batches
//
// Example:
//
//	exec := process.NewExecutor(logger, process.WithTimeout(2*time.Minute))
//	pool := process.NewPool(ctx, &process.PoolOptions{Workers: 4})
//	for _, f := range files {
//	    pool.Submit(f, func(ctx context.Context) error {
//	        _, err := exec.Run(ctx, process.Command{Tool: "sox", Path: "sox", Args: []string{f, "out.wav"}})
//	        return err
//	    })
//	}
//	infos := pool.Wait()
package process
