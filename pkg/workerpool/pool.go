// Package workerpool runs tasks on a fixed number of goroutines. Batch jobs
// such as remote image imports use it to bound concurrent fetches.
//
//	pool := workerpool.New(4)
//	for _, u := range urls {
//	    u := u
//	    _ = pool.SubmitWait(ctx, func(ctx context.Context) { fetch(ctx, u) })
//	}
//	pool.Shutdown() // waits for every submitted task
package workerpool

import (
	"context"
	"errors"
	"sync"

	"github.com/shashiranjanraj/studio/pkg/logger"
)

// ErrPoolFull is returned by Submit when every worker is busy and the queue
// is at capacity.
var ErrPoolFull = errors.New("workerpool: pool is full")

// ErrPoolClosed is returned after Shutdown has been called.
var ErrPoolClosed = errors.New("workerpool: pool is closed")

// Task is a unit of work. ctx is the context given at submission.
type Task func(ctx context.Context)

type job struct {
	ctx  context.Context
	task Task
}

type Pool struct {
	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup
}

// New starts size workers. The queue holds 2x size pending tasks.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{jobs: make(chan job, size*2)}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues task without blocking.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job{ctx: ctx, task: task}:
		return nil
	default:
		return ErrPoolFull
	}
}

// SubmitWait blocks until the task is queued or ctx is done.
func (p *Pool) SubmitWait(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job{ctx: ctx, task: task}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting tasks and waits for queued and running ones to
// finish. It is safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		run(j)
	}
}

// run executes a job; a panicking task is logged and does not take the
// worker down.
func run(j job) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.WithCtx(j.ctx).Error("workerpool: task panicked", "panic", rec)
		}
	}()
	j.task(j.ctx)
}
