// Package workerpool provides a bounded-concurrency pool for submitting
// independent jobs and waiting on a specific job's result: the submitting
// goroutine acquires a semaphore permit per in-flight job and each job runs
// on its own new goroutine. There are no long-lived workers and no shared
// error tracking; each job's error is carried by its own Future.
package workerpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of jobs running concurrently. It is safe for
// concurrent submission from multiple goroutines, though this encoder's
// dispatcher is always the sole submitter.
type Pool struct {
	sem *semaphore.Weighted
}

// New creates a pool with the given degree of parallelism. A size <= 0
// defaults to the number of logical processors, matching the worker pool's
// documented default.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
		if size < 1 {
			size = 1
		}
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Future is a one-shot handoff for a job's result: a promise cell that a
// worker fulfills exactly once and the submitter's thread consumes exactly
// once. Its zero value is not usable; construct it via Submit.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// DoneSignal returns a channel closed once the job completes, for callers
// that want to poll readiness (e.g. via select) without blocking.
func (f *Future[T]) DoneSignal() <-chan struct{} {
	return f.done
}

// Wait blocks until the job completes, returning its result or error. ctx
// cancellation unblocks Wait but does not cancel the job itself, matching
// the "in-flight jobs are allowed to finish but their outputs are discarded"
// cancellation policy — the caller is expected to discard the future, not
// the running goroutine.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit acquires a permit (blocking if the pool is saturated) and runs fn
// on a new goroutine, returning a Future for its result. If ctx is canceled
// before a permit is acquired, Submit returns the context error immediately
// without running fn.
func Submit[T any](ctx context.Context, p *Pool, fn func() (T, error)) (*Future[T], error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	fut := &Future[T]{done: make(chan struct{})}
	go func() {
		defer p.sem.Release(1)
		fut.val, fut.err = fn()
		close(fut.done)
	}()
	return fut, nil
}
