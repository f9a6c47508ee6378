// Package pool provides a bounded goroutine pool for request dispatch.
package pool

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/semaphore"
)

// PanicHandler receives the error form of a panic recovered from a job.
type PanicHandler func(err error)

// Pool runs jobs on at most Size goroutines at once. Submissions beyond the
// limit wait for a free slot instead of spawning more goroutines.
type Pool struct {
	sem      *semaphore.Weighted
	size     int
	wg       sync.WaitGroup
	inflight atomic.Int64
	freed    chan struct{}
	onPanic  PanicHandler
}

// Option customizes a Pool.
type Option func(*Pool)

// WithPanicHandler installs a handler for panics raised by jobs.
func WithPanicHandler(h PanicHandler) Option {
	return func(p *Pool) {
		p.onPanic = h
	}
}

// New creates a pool with the given number of slots.
func New(size int, opts ...Option) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{
		sem:   semaphore.NewWeighted(int64(size)),
		size:  size,
		freed: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return p.size
}

// InFlight returns the number of jobs currently running.
func (p *Pool) InFlight() int {
	return int(p.inflight.Load())
}

// Go waits for a free slot and runs job on its own goroutine. It returns the
// context error if ctx ends before a slot frees up; job is then not run.
func (p *Pool) Go(ctx context.Context, job func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.launch(job)
	return nil
}

// TryGo runs job only if a slot is free right now.
func (p *Pool) TryGo(job func()) bool {
	if !p.sem.TryAcquire(1) {
		return false
	}
	p.launch(job)
	return true
}

// Freed signals, coalesced, that at least one job finished since the last receive.
func (p *Pool) Freed() <-chan struct{} {
	return p.freed
}

// Wait blocks until every launched job has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) launch(job func()) {
	p.inflight.Add(1)
	p.wg.Add(1)
	go func() {
		defer func() {
			p.inflight.Add(-1)
			p.sem.Release(1)
			p.wg.Done()
			select {
			case p.freed <- struct{}{}:
			default:
			}
		}()
		if r := panics.Try(job); r != nil && p.onPanic != nil {
			p.onPanic(r.AsError())
		}
	}()
}
