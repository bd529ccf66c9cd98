// Package executor implements a fixed-size work-stealing task pool: P
// workers, each with its own run-stack, each able to submit new work to
// itself (LIFO, for recursive fork-style decomposition) while idle workers
// steal from the front of someone else's stack (the end external dispatch
// pushes onto, opposite the owner's own LIFO end).
package executor

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/lchhh1203/papso/deque"
)

// Task is a unit of fire-and-forget work. It receives the WorkerHandle of
// whichever worker ends up running it, so it can fork further work onto
// that worker's own stack or suspend on a Future via Get.
//
// This is the native Go analogue of the source's type-erased, small-object-
// optimized task_wrapper: a closure already is a type-erased, movable
// callable, and the Go runtime already decides whether its captured state
// is heap- or stack-allocated. There is no reason to hand-roll that
// machinery again.
type Task func(*WorkerHandle)

// Options configures an Executor.
type Options struct {
	// Parallelism is the number of workers. Must be >= 1.
	Parallelism int
	// EnableStealing controls whether idle workers steal from others.
	// Disabling it is mostly useful for the scheduler stress test, to
	// observe strict round-robin dispatch in isolation.
	EnableStealing bool
}

// Executor is a fixed pool of P workers, each running its own goroutine and
// consuming from its own deque. Construct with New; shut down with
// Shutdown.
type Executor struct {
	workers        []*worker
	ticket         atomic.Uint64
	done           atomic.Bool
	enableStealing bool
	wg             sync.WaitGroup
}

// New starts opts.Parallelism workers and returns the running Executor.
func New(opts Options) *Executor {
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	e := &Executor{
		workers:        make([]*worker, opts.Parallelism),
		enableStealing: opts.EnableStealing,
	}
	for i := range e.workers {
		e.workers[i] = newWorker(e, i)
	}
	e.wg.Add(opts.Parallelism)
	for _, w := range e.workers {
		w := w
		go func() {
			defer e.wg.Done()
			w.loop()
		}()
	}
	return e
}

// Shutdown signals every worker to stop once its current task returns and
// waits for all worker goroutines to exit. Tasks already queued but not yet
// run are abandoned. Shutdown is idempotent.
func (e *Executor) Shutdown() {
	e.done.Store(true)
	e.wg.Wait()
}

func (e *Executor) isDone() bool {
	return e.done.Load()
}

// Execute submits a fire-and-forget task, dispatched round-robin across
// workers via a monotonic ticket. A no-op once the executor is shut down.
func (e *Executor) Execute(t Task) {
	if e.isDone() {
		return
	}
	e.dispatch(t)
}

// ExecuteReturn submits a task that produces a result of type R, dispatched
// round-robin like Execute, and returns a Future for it. If the executor is
// already shut down, nothing is dispatched and the returned future never
// becomes ready: its Get returns only once ctx is done.
func ExecuteReturn[R any](e *Executor, fn func(*WorkerHandle) R) *Future[R] {
	fut := newFuture[R]()
	if e.isDone() {
		return fut
	}
	e.dispatch(func(h *WorkerHandle) {
		fut.resolve(fn(h))
	})
	return fut
}

// dispatch assigns t to a worker chosen by a monotonically advancing
// ticket. Go's atomic.Uint64.Add is a strictly better tool here than the
// source's load/compare-exchange pair: it can't lose a race and silently
// retry, it just always advances. Placement is still only approximately
// round-robin under concurrent dispatch, which is the only externally
// observable property the source guarantees either way.
func (e *Executor) dispatch(t Task) {
	idx := e.ticket.Add(1) - 1
	e.workers[idx%uint64(len(e.workers))].assign(t)
}

// steal looks for work on every other worker's stack, starting just after
// idx and wrapping around, stopping at the first one that yields a task.
func (e *Executor) steal(idx int) (Task, bool) {
	n := len(e.workers)
	for i := 1; i < n; i++ {
		if t, ok := e.workers[(idx+i)%n].tryServe(); ok {
			return t, true
		}
	}
	return Task(nil), false
}

// worker is the execution context of one goroutine: its own run-stack plus
// the index it was assigned, used both to find a starting point for
// stealing and to report itself to the executor.
type worker struct {
	etor  *Executor
	index int
	stack deque.Deque[Task]
}

func newWorker(e *Executor, idx int) *worker {
	return &worker{etor: e, index: idx}
}

// pushOwn and popOwn form the owner's own LIFO stack: a worker submitting
// work to itself (to fork a subtask) uses the same end it pops from, so
// recently forked work runs first, cache-hot and depth-first.
func (w *worker) pushOwn(t Task) {
	w.stack.PushBack(t)
}

func (w *worker) popOwn() (Task, bool) {
	return w.stack.PopBack()
}

// assign is how the executor (or another worker, via the executor) hands
// this worker externally dispatched work: the opposite end from pushOwn, so
// external work and self-forked work never compete for the same slot, and
// a thief draining from the front sees external work newest first (reverse
// dispatch order).
func (w *worker) assign(t Task) {
	w.stack.PushFront(t)
}

// tryServe is what a thief calls: pop from the front, the same end assign
// uses, so a steal never races the owner's own push/pop at the back.
func (w *worker) tryServe() (Task, bool) {
	return w.stack.PopFront()
}

// loop is the worker's main function: pop own work, else steal, else yield
// the goroutine's time slice. There is no channel or condvar wait here —
// matching the source's busy-idle-with-yield design — a worker spins until
// either work appears or the executor is marked done.
func (w *worker) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	h := &WorkerHandle{w: w}
	for !w.etor.isDone() {
		if t, ok := w.popOwn(); ok {
			t(h)
			continue
		}
		if w.etor.enableStealing {
			if t, ok := w.etor.steal(w.index); ok {
				t(h)
				continue
			}
		}
		runtime.Gosched()
	}
}

// WorkerHandle is passed to every running Task, giving it a way to submit
// more work to its own worker and to cooperatively wait on a Future without
// blocking the underlying goroutine idle.
type WorkerHandle struct {
	w *worker
}

// Execute submits t to this handle's own worker, LIFO: it runs before any
// work the owner already had queued.
func (h *WorkerHandle) Execute(t Task) {
	h.w.pushOwn(t)
}

// HandleExecuteReturn submits fn to h's own worker and returns a Future for
// its result. A free function, not a method, because Go methods cannot
// introduce their own type parameters.
func HandleExecuteReturn[R any](h *WorkerHandle, fn func(*WorkerHandle) R) *Future[R] {
	fut := newFuture[R]()
	h.w.pushOwn(func(h *WorkerHandle) {
		fut.resolve(fn(h))
	})
	return fut
}

// Get suspends the calling task until fut is ready, but never blocks the
// underlying goroutine: while waiting, it keeps popping and running work
// from its own worker (and stealing, if enabled) exactly as the worker's
// main loop would. This re-entrant wait is what lets a forking task join
// its children without starving the pool of a worker. A free function for
// the same reason as HandleExecuteReturn.
func Get[R any](h *WorkerHandle, ctx context.Context, fut *Future[R]) (R, error) {
	for !fut.Ready() {
		if ctx.Err() != nil {
			var zero R
			return zero, ctx.Err()
		}
		if t, ok := h.w.popOwn(); ok {
			t(h)
			continue
		}
		if h.w.etor.enableStealing {
			if t, ok := h.w.etor.steal(h.w.index); ok {
				t(h)
				continue
			}
		}
		runtime.Gosched()
	}
	return fut.Get(ctx)
}
