package nursery

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// TestRun_WaitsForAllForkResults exercises the same shape cmd/optimizer uses:
// one goroutine per fork result, each blocking on its own completion signal
// before reporting a value, with Run not returning until every one of them
// has.
func TestRun_WaitsForAllForkResults(t *testing.T) {
	ctx := context.Background()

	const numForks = 6
	done := make([]chan struct{}, numForks)
	for i := range done {
		done[i] = make(chan struct{})
	}

	var mu sync.Mutex
	var values []int

	go func() {
		for i := range done {
			close(done[i])
		}
	}()

	err := Run(ctx, func(ctx context.Context, n *Nursery) {
		for i := 0; i < numForks; i++ {
			i := i
			n.Go(func() error {
				select {
				case <-done[i]:
				case <-ctx.Done():
					return ctx.Err()
				}
				mu.Lock()
				values = append(values, i)
				mu.Unlock()
				return nil
			})
		}
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	sort.Ints(values)
	want := []int{0, 1, 2, 3, 4, 5}
	if diff := cmp.Diff(values, want); diff != "" {
		t.Errorf("Run() collected forks (-got +want): %s", diff)
	}
}

// TestRun_OneForkErrorCancelsTheRest mirrors the failure path of
// cmd/optimizer's result wait: if the goroutine blocked on result.Get
// returns an error, the nursery's shared context must be canceled so any
// other goroutine sharing it (e.g. a second wait, or future work) can give
// up instead of blocking forever.
func TestRun_OneForkErrorCancelsTheRest(t *testing.T) {
	ctx := context.Background()
	wantErr := errors.New("fork failed")

	err := Run(ctx, func(ctx context.Context, n *Nursery) {
		n.Go(func() error {
			return wantErr
		})
		n.Go(func() error {
			<-ctx.Done()
			return ctx.Err()
		})
	})
	if err == nil {
		t.Fatal("Run() error = nil, want the first fork's error wrapped")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("Run() error = %v, want it to wrap %v", err, wantErr)
	}
}

// TestRun_ParentCancellationStopsAWaitingFork matches the
// signal.NotifyContext path in cmd/optimizer: canceling the context passed
// into Run (e.g. on SIGINT) must unblock a goroutine waiting on it, rather
// than leaving Run hung forever.
func TestRun_ParentCancellationStopsAWaitingFork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	resultErr := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		resultErr <- Run(ctx, func(ctx context.Context, n *Nursery) {
			n.Go(func() error {
				close(started)
				<-ctx.Done()
				return ctx.Err()
			})
		})
	}()

	<-started
	cancel()

	select {
	case err := <-resultErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want it to wrap context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after its context was canceled")
	}
}

// TestRun_NestedNurseriesWaitForDynamicallySpawnedWork checks that a
// goroutine can itself open a nested nursery and spawn further work without
// the outer Run returning early, the pattern cmd/optimizer would need if a
// fork wait ever had to kick off follow-up work of its own.
func TestRun_NestedNurseriesWaitForDynamicallySpawnedWork(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	var total int

	err := Run(ctx, func(ctx context.Context, n *Nursery) {
		n.Go(func() error {
			return Run(ctx, func(ctx context.Context, n *Nursery) {
				for i := 0; i < 3; i++ {
					n.Go(func() error {
						mu.Lock()
						total++
						mu.Unlock()
						return nil
					})
				}
			})
		})
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
}
