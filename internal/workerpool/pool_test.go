package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestSubmitRunsAndReturnsResult(t *testing.T) {
	p := New(4)
	fut, err := Submit(context.Background(), p, func() (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	got, err := fut.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}

func TestSubmitPropagatesError(t *testing.T) {
	p := New(2)
	wantErr := errors.New("boom")
	fut, err := Submit(context.Background(), p, func() (int, error) {
		return 0, wantErr
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	_, err = fut.Wait(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	const size = 3
	const jobs = 20
	p := New(size)

	// Submitting all jobs from this goroutine, relying on Submit itself to
	// block once the pool is saturated, gates at most `size` jobs into
	// flight at once: by the time Submit(job N) returns, a permit has been
	// freed, so the running count observed by any job can never exceed
	// size even without additional synchronization.
	var running int32
	var maxObserved int32
	futs := make([]*Future[struct{}], 0, jobs)
	for i := 0; i < jobs; i++ {
		fut, err := Submit(context.Background(), p, func() (struct{}, error) {
			n := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&maxObserved)
				if n <= old || atomic.CompareAndSwapInt32(&maxObserved, old, n) {
					break
				}
			}
			atomic.AddInt32(&running, -1)
			return struct{}{}, nil
		})
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		futs = append(futs, fut)
	}

	for i, fut := range futs {
		if _, err := fut.Wait(context.Background()); err != nil {
			t.Fatalf("job %d: %v", i, err)
		}
	}

	if maxObserved > size {
		t.Fatalf("observed %d concurrent jobs, pool size was %d", maxObserved, size)
	}
}

func TestDefaultSizeIsPositive(t *testing.T) {
	p := New(0)
	if p.sem == nil {
		t.Fatal("New(0) produced a pool with no semaphore")
	}
	if !p.sem.TryAcquire(1) {
		t.Fatal("New(0) produced a pool that cannot run a single job")
	}
	p.sem.Release(1)
}
