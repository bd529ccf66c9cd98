package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecuteReturnRoundTrip(t *testing.T) {
	e := New(Options{Parallelism: 4, EnableStealing: true})
	defer e.Shutdown()

	fut := ExecuteReturn(e, func(h *WorkerHandle) int {
		return 21 * 2
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := fut.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != 42 {
		t.Fatalf("Get() = %d, want 42", got)
	}
}

func TestHandleExecuteRunsOnOwnWorker(t *testing.T) {
	e := New(Options{Parallelism: 2, EnableStealing: false})
	defer e.Shutdown()

	var child int32
	outer := ExecuteReturn(e, func(h *WorkerHandle) int {
		inner := HandleExecuteReturn(h, func(h *WorkerHandle) int {
			atomic.StoreInt32(&child, 1)
			return 7
		})
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		v, err := Get(h, ctx, inner)
		if err != nil {
			t.Errorf("inner Get() error = %v", err)
		}
		return v
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := outer.Get(ctx)
	if err != nil {
		t.Fatalf("outer Get() error = %v", err)
	}
	if got != 7 {
		t.Fatalf("outer Get() = %d, want 7", got)
	}
	if atomic.LoadInt32(&child) != 1 {
		t.Fatal("inner task never ran")
	}
}

func TestGetIsReentrantAndDoesNotStallTheWorker(t *testing.T) {
	// With a single worker, a task that waits on a Future produced by its
	// own HandleExecuteReturn call must still make progress: Get has to keep
	// consuming the worker's own queue while waiting, since there is no
	// second worker available to run the child task.
	e := New(Options{Parallelism: 1, EnableStealing: false})
	defer e.Shutdown()

	fut := ExecuteReturn(e, func(h *WorkerHandle) int {
		child := HandleExecuteReturn(h, func(h *WorkerHandle) int { return 5 })
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		v, err := Get(h, ctx, child)
		if err != nil {
			t.Errorf("Get() error = %v", err)
		}
		return v + 1
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := fut.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != 6 {
		t.Fatalf("Get() = %d, want 6", got)
	}
}

func TestGetHonorsContextCancellation(t *testing.T) {
	e := New(Options{Parallelism: 1, EnableStealing: false})
	defer e.Shutdown()

	// Keep the single worker permanently busy so the never-resolved future
	// never gets a chance to run.
	block := make(chan struct{})
	e.Execute(func(h *WorkerHandle) {
		<-block
	})

	fut := ExecuteReturn(e, func(h *WorkerHandle) int { return 0 })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := fut.Get(ctx)
	close(block)
	if err == nil {
		t.Fatal("Get() returned nil error, want context deadline error")
	}
}

// TestSchedulerStressFireAndForget submits N*P fire-and-forget tasks, each
// incrementing a shared counter, and checks the final count is exact
// regardless of whether stealing is enabled.
func TestSchedulerStressFireAndForget(t *testing.T) {
	for _, stealing := range []bool{false, true} {
		stealing := stealing
		t.Run("", func(t *testing.T) {
			const p = 8
			const n = 2000
			e := New(Options{Parallelism: p, EnableStealing: stealing})
			defer e.Shutdown()

			var counter atomic.Int64
			var wg sync.WaitGroup
			wg.Add(p * n)
			for i := 0; i < p*n; i++ {
				e.Execute(func(h *WorkerHandle) {
					counter.Add(1)
					wg.Done()
				})
			}
			waitTimeout(t, &wg, 5*time.Second)

			if got := counter.Load(); got != int64(p*n) {
				t.Fatalf("counter = %d, want %d (stealing=%v)", got, p*n, stealing)
			}
		})
	}
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting for tasks to complete")
	}
}

func TestExecuteIsNoOpAfterShutdown(t *testing.T) {
	e := New(Options{Parallelism: 2, EnableStealing: true})
	e.Shutdown()

	var ran atomic.Bool
	e.Execute(func(h *WorkerHandle) { ran.Store(true) })
	time.Sleep(10 * time.Millisecond)
	if ran.Load() {
		t.Fatal("task ran after Shutdown")
	}
}
