// Package spmcbuf implements a single-producer / multi-consumer versioned
// buffer: one writer publishes successive values of a type T while any
// number of readers hold snapshots for arbitrary durations, with neither
// side ever blocking the other.
//
// The design mirrors a fixed-associativity cache: Associativity slots, each
// carrying a reference count with the convention 0 = idle, >0 = N readers,
// -1 = writer holds it exclusively. A reader that releases the last
// reference on a slot opportunistically advances any value the writer
// could not publish directly (see Buffer.Put).
package spmcbuf

import "sync/atomic"

const cacheLine = 64

// slot holds one version of T plus its reference counter. The counter and
// the value are kept on separate cache lines so that readers bumping the
// counter don't false-share with whatever last wrote the value.
type slot[T any] struct {
	counter atomic.Int32
	_       [cacheLine - 4]byte
	value   T
}

// DefaultAssociativity is the number of slots a Buffer carries when none is
// specified — enough headroom that a producer publishing faster than any
// single reader can drain rarely has to stage a pending write.
const DefaultAssociativity = 4

// Buffer publishes values of type T from a single producer to any number of
// concurrent consumers. The zero value is not usable; construct with New.
type Buffer[T any] struct {
	slots     []slot[T]
	readIndex atomic.Uint64 // monotonically increasing; slot = readIndex % len(slots)
	pending   atomic.Pointer[T]
}

// New creates a Buffer with the given associativity (must be >= 2; values
// below 2 are raised to 2, since the writer needs at least a current slot
// and a target slot to rotate into).
func New[T any](associativity int) *Buffer[T] {
	if associativity < 2 {
		associativity = 2
	}
	return &Buffer[T]{slots: make([]slot[T], associativity)}
}

// Viewer is a scoped read lease on a snapshot held in a Buffer slot. The
// value it returns never changes for the lifetime of the Viewer, even as
// the producer continues to Put new values. Release must be called exactly
// once when the caller is done with the snapshot — Go has no destructors,
// so there is no way to enforce this automatically.
type Viewer[T any] struct {
	buf      *Buffer[T]
	idx      int
	released bool
}

// Value returns the snapshot this viewer holds.
func (v *Viewer[T]) Value() T {
	return v.buf.slots[v.idx].value
}

// Release gives up the read lease. Calling Release more than once is a
// no-op.
func (v *Viewer[T]) Release() {
	if v.released {
		return
	}
	v.released = true
	if v.buf.slots[v.idx].counter.Add(-1) == 0 {
		v.buf.proceedPendingWrite()
	}
}

// Get returns a Viewer onto the most recently published value. Get never
// blocks and never fails.
func (b *Buffer[T]) Get() Viewer[T] {
	idx := int(b.readIndex.Load()) % len(b.slots)
	b.slots[idx].counter.Add(1)
	return Viewer[T]{buf: b, idx: idx}
}

// Put publishes v. Put never blocks: if every other slot is currently held
// by a reader, v is staged in a single pending register (last-writer-wins)
// and is published later, opportunistically, as readers release their
// slots. Put must only ever be called by one goroutine at a time (the
// single producer).
func (b *Buffer[T]) Put(v T) {
	absIdx, ok := b.acquireWrite()
	if !ok {
		b.stagePending(v)
		return
	}
	idx := absIdx % len(b.slots)
	b.slots[idx].value = v
	b.slots[idx].counter.Store(0)
	b.readIndex.Store(uint64(absIdx))
}

// acquireWrite scans every slot other than the currently published one,
// starting from readIndex+1, trying to claim each via a 0 -> -1
// compare-and-swap on its counter. It returns the absolute (unwrapped)
// index it claimed, so the caller can publish it with readIndex.Store
// without ever moving readIndex backwards.
func (b *Buffer[T]) acquireWrite() (absIdx int, ok bool) {
	n := len(b.slots)
	base := int(b.readIndex.Load())
	for offset := 1; offset < n; offset++ {
		absIdx = base + offset
		if b.slots[absIdx%n].counter.CompareAndSwap(0, -1) {
			return absIdx, true
		}
	}
	return 0, false
}

// stagePending replaces any previously staged, not-yet-written value with
// v. The producer never blocks here, win or lose.
func (b *Buffer[T]) stagePending(v T) {
	b.pending.Store(&v)
}

// proceedPendingWrite is the "opportunistic write" a reader attempts every
// time it releases a slot and observes the counter drop to zero: if the
// producer left a value staged because every slot was busy, try to publish
// it into the single slot immediately after the current readIndex. Unlike
// acquireWrite, this only ever tries that one slot — if it's still busy,
// the pending value is re-armed (last-writer-wins) for the next reader to
// try.
func (b *Buffer[T]) proceedPendingWrite() {
	pv := b.pending.Load()
	if pv == nil {
		return
	}
	if !b.pending.CompareAndSwap(pv, nil) {
		return // another releasing reader already claimed it
	}

	n := len(b.slots)
	base := int(b.readIndex.Load())
	absIdx := base + 1
	idx := absIdx % n
	if !b.slots[idx].counter.CompareAndSwap(0, -1) {
		// Still busy. Put it back for the next release to try; last
		// writer wins if the producer has since called Put again.
		b.pending.Store(pv)
		return
	}

	b.slots[idx].value = *pv
	b.slots[idx].counter.Store(0)
	b.readIndex.Store(uint64(absIdx))
}
