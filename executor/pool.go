// Package executor provides the bounded-concurrency task runtime that
// runs async tool calls off the scripting engine's goroutine. Its
// goroutines never touch engine state and never block on the engine.
package executor

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of async tool calls running concurrently: a
// weighted semaphore gates fire-and-forget goroutines, and an errgroup
// joins the batches callers want to wait for.
type Pool struct {
	sem    *semaphore.Weighted
	group  *errgroup.Group
	ctx    context.Context
	logger *slog.Logger
}

// NewPool returns a Pool that runs up to maxConcurrent tasks at once.
// maxConcurrent <= 0 means unbounded.
func NewPool(ctx context.Context, maxConcurrent int64, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	group, groupCtx := errgroup.WithContext(ctx)
	var sem *semaphore.Weighted
	if maxConcurrent > 0 {
		sem = semaphore.NewWeighted(maxConcurrent)
	}
	return &Pool{sem: sem, group: group, ctx: groupCtx, logger: logger}
}

// Go schedules fn to run on its own goroutine and returns at once; when
// the pool is at capacity, that goroutine waits for a free slot before
// running fn, so the caller never blocks. Implements
// bridge.asyncDispatcher's shape by structural typing (Go(fn func())).
func (p *Pool) Go(fn func()) {
	if p.sem != nil {
		go func() {
			if err := p.sem.Acquire(p.ctx, 1); err != nil {
				// Context cancelled before a slot freed up; run anyway so a
				// tool call is never silently lost. In-flight tool calls are
				// deliberately never cancelled.
				p.logger.Warn("executor pool: running task without acquiring slot", "error", err)
				fn()
				return
			}
			defer p.sem.Release(1)
			fn()
		}()
		return
	}
	go fn()
}

// Wait blocks until every task spawned with GoErr has returned. Pool.Go
// itself does not register with the errgroup (those tasks are
// fire-and-forget and keep running after an execution is abandoned), so
// Wait only joins tasks started with GoErr.
func (p *Pool) Wait() error {
	return p.group.Wait()
}

// GoErr schedules fn and joins it into the pool's errgroup, for callers
// that want to wait for a batch of tasks to finish (e.g. host-side
// shutdown), as opposed to the fire-and-forget Go used by the bridge's
// async tool dispatch.
func (p *Pool) GoErr(fn func() error) {
	if p.sem != nil {
		p.group.Go(func() error {
			if err := p.sem.Acquire(p.ctx, 1); err != nil {
				return err
			}
			defer p.sem.Release(1)
			return fn()
		})
		return
	}
	p.group.Go(fn)
}
