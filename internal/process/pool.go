package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrPoolClosed is returned by Submit after Wait has been called.
var ErrPoolClosed = errors.New("pool closed")

// Job is a unit of work run by a Pool worker.
type Job func(ctx context.Context) error

// Pool runs jobs on a bounded number of workers.
type Pool interface {
	// Submit queues a job under a unique ID. It does not block.
	Submit(id string, job Job) error

	// Wait blocks until every submitted job finished or was cancelled and
	// returns their final info in submission order. The pool accepts no
	// further jobs afterwards.
	Wait() []Info

	// GetStatus returns job info. Returns nil if the ID is unknown.
	GetStatus(id string) *Info

	// Cancel stops queued jobs from starting and cancels the context of running ones.
	Cancel()
}

// managedJob tracks a job within the pool.
type managedJob struct {
	info Info
	job  Job
}

// pool implements the Pool interface.
type pool struct {
	opts   PoolOptions
	jobs   map[string]*managedJob
	order  []string
	closed bool
	mu     sync.RWMutex
	sem    chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a pool bound to ctx; cancelling ctx cancels the pool.
func NewPool(ctx context.Context, opts *PoolOptions) Pool {
	if opts == nil {
		opts = &PoolOptions{}
	}
	o := *opts
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	return &pool{
		opts:   o,
		jobs:   make(map[string]*managedJob),
		sem:    make(chan struct{}, o.Workers),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit queues a job.
func (p *pool) Submit(id string, job Job) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	if _, exists := p.jobs[id]; exists {
		p.mu.Unlock()
		return fmt.Errorf("job %s already submitted", id)
	}
	mj := &managedJob{info: Info{ID: id, State: StateQueued}, job: job}
	p.jobs[id] = mj
	p.order = append(p.order, id)
	p.wg.Add(1)
	p.mu.Unlock()

	p.notifyStateChange(id, "", StateQueued, nil)

	go func() {
		defer p.wg.Done()
		p.runJob(mj)
	}()
	return nil
}

// runJob waits for a worker slot, then runs the job and records the outcome.
func (p *pool) runJob(mj *managedJob) {
	select {
	case p.sem <- struct{}{}:
	case <-p.ctx.Done():
		p.transition(mj, StateCanceled, p.ctx.Err())
		return
	}
	defer func() { <-p.sem }()

	// A slot may have been won in the same instant the pool was cancelled.
	if p.ctx.Err() != nil {
		p.transition(mj, StateCanceled, p.ctx.Err())
		return
	}

	p.transition(mj, StateRunning, nil)
	err := mj.job(p.ctx)
	if err != nil {
		p.transition(mj, StateError, err)
		if p.opts.FailFast {
			p.opts.Logger.Warn("Job failed, cancelling pool", "id", mj.info.ID, "error", err)
			p.cancel()
		}
		return
	}
	p.transition(mj, StateDone, nil)
}

func (p *pool) transition(mj *managedJob, newState State, err error) {
	p.mu.Lock()
	oldState := mj.info.State
	mj.info.State = newState
	now := time.Now()
	switch newState {
	case StateRunning:
		mj.info.StartedAt = now
	case StateDone, StateError, StateCanceled:
		mj.info.FinishedAt = now
		mj.info.LastError = err
	}
	p.mu.Unlock()

	p.notifyStateChange(mj.info.ID, oldState, newState, err)
}

// Wait blocks until all jobs finish.
func (p *pool) Wait() []Info {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()

	p.mu.RLock()
	defer p.mu.RUnlock()
	infos := make([]Info, 0, len(p.order))
	for _, id := range p.order {
		infos = append(infos, p.jobs[id].info)
	}
	return infos
}

// GetStatus returns job info.
func (p *pool) GetStatus(id string) *Info {
	p.mu.RLock()
	defer p.mu.RUnlock()

	mj, exists := p.jobs[id]
	if !exists {
		return nil
	}
	info := mj.info
	return &info
}

// Cancel cancels the pool.
func (p *pool) Cancel() {
	p.cancel()
}

// notifyStateChange invokes the OnStateChange callback if configured.
func (p *pool) notifyStateChange(id string, oldState, newState State, err error) {
	if p.opts.OnStateChange != nil {
		p.opts.OnStateChange(id, oldState, newState, err)
	}
}
