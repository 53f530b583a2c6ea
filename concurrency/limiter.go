// Package concurrency provides the bounded-parallelism primitives used to
// keep simultaneous full-resolution decodes from exhausting memory.
package concurrency

import (
	"context"
	"runtime"
	"sync"
)

// Semaphore is a counting semaphore with context-aware acquisition.
type Semaphore struct {
	tickets chan struct{}
}

// NewSemaphore creates a Semaphore with the given capacity. A non-positive
// capacity falls back to the host CPU count.
func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = runtime.NumCPU()
	}
	return &Semaphore{tickets: make(chan struct{}, capacity)}
}

// Acquire blocks until a ticket is available or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.tickets <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a ticket.
func (s *Semaphore) Release() {
	<-s.tickets
}

// Limiter runs a set of independent tasks with bounded parallelism. Task
// errors are collected positionally, never propagated between tasks: one
// task failing does not stop its siblings, which is exactly the per-variant
// isolation the pipeline needs.
type Limiter struct {
	sem *Semaphore
}

// NewLimiter creates a Limiter bounded to maxConcurrent tasks
// (CPU count when non-positive).
func NewLimiter(maxConcurrent int) *Limiter {
	return &Limiter{sem: NewSemaphore(maxConcurrent)}
}

// Go runs fn under the limiter bound. It returns ctx.Err() without running
// fn when the context is done before a slot frees up.
func (l *Limiter) Go(ctx context.Context, fn func() error) error {
	if err := l.sem.Acquire(ctx); err != nil {
		return err
	}
	defer l.sem.Release()
	return fn()
}

// RunAll executes every fn under the bound and returns one error slot per
// task. A canceled context surfaces as ctx.Err() in the slots of tasks that
// never started.
func (l *Limiter) RunAll(ctx context.Context, fns []func() error) []error {
	results := make([]error, len(fns))
	var wg sync.WaitGroup

	for i, fn := range fns {
		wg.Add(1)
		go func(idx int, f func() error) {
			defer wg.Done()
			results[idx] = l.Go(ctx, f)
		}(i, fn)
	}

	wg.Wait()
	return results
}
