package concurrency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLimiterBoundsParallelism(t *testing.T) {
	const bound = 2
	limiter := NewLimiter(bound)

	var current, peak int32
	var mu sync.Mutex

	fns := make([]func() error, 8)
	for i := range fns {
		fns[i] = func() error {
			n := atomic.AddInt32(&current, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return nil
		}
	}

	results := limiter.RunAll(context.Background(), fns)
	for i, err := range results {
		if err != nil {
			t.Fatalf("task %d: %v", i, err)
		}
	}
	if peak > bound {
		t.Fatalf("observed %d concurrent tasks, bound is %d", peak, bound)
	}
}

func TestRunAllIsolatesErrors(t *testing.T) {
	limiter := NewLimiter(4)
	boom := errors.New("boom")

	var ran int32
	fns := []func() error{
		func() error { atomic.AddInt32(&ran, 1); return nil },
		func() error { atomic.AddInt32(&ran, 1); return boom },
		func() error { atomic.AddInt32(&ran, 1); return nil },
	}

	results := limiter.RunAll(context.Background(), fns)

	if ran != 3 {
		t.Fatalf("a failing task stopped its siblings: ran=%d", ran)
	}
	if results[0] != nil || results[2] != nil {
		t.Fatalf("unexpected sibling errors: %v", results)
	}
	if !errors.Is(results[1], boom) {
		t.Fatalf("expected boom at slot 1, got %v", results[1])
	}
}

func TestGoRespectsCancellation(t *testing.T) {
	limiter := NewLimiter(1)
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	go func() {
		_ = limiter.Go(context.Background(), func() error {
			<-release
			return nil
		})
	}()
	// wait until the single slot is taken
	time.Sleep(10 * time.Millisecond)
	cancel()

	err := limiter.Go(ctx, func() error {
		t.Fatal("task must not run after cancellation")
		return nil
	})
	close(release)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewSemaphoreDefaultsToCPUCount(t *testing.T) {
	s := NewSemaphore(0)
	if cap(s.tickets) < 1 {
		t.Fatalf("expected positive default capacity")
	}
}
