package lockfree

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// latestValue is the cell shared by a ValueWriter/ValueReader pair: a
// multi-buffer of depth >= 2 in which only the most recently published
// value is guaranteed retrievable. Older values may be displaced before
// anyone reads them; that is the point of the structure.
//
// setIdx names the slot of the latest publish, getIdx the slot the
// reader claimed last. The writer's slot selection steps over getIdx,
// so the slot the reader holds is never rewritten under it. Equal
// cursors mean nothing new has been published.
type latestValue[T any] struct {
	// Optional padding to avoid false sharing between frequently accessed fields
	_      cpu.CacheLinePad
	mask   uint64
	depth  uint64
	slots  []slot[T]
	_      cpu.CacheLinePad
	setIdx atomic.Uint64 // slot of the latest publish, updated by the writer only
	_      cpu.CacheLinePad
	getIdx atomic.Uint64 // slot claimed by the reader, updated by the reader only
	_      cpu.CacheLinePad
}

// newLatestValue allocates the shared cell.
// Depth must be a power of two (1<<k) and at least 2.
func newLatestValue[T any](depth uint64, init func(i uint64) T) *latestValue[T] {
	checkCapacity(depth)

	slots := make([]slot[T], depth)
	if init != nil {
		for i := uint64(0); i < depth; i++ {
			// prime every slot; the first publishes displace these back
			// to the writer, which is how buffer recycling starts
			slots[i].replace(init(i))
		}
	}

	return &latestValue[T]{
		mask:  depth - 1,
		depth: depth,
		slots: slots,
	}
}

// nextIndex picks the slot for the next publish: the one after setIdx,
// stepping over getIdx so the writer never targets the slot the reader
// most recently claimed.
func (v *latestValue[T]) nextIndex() uint64 {
	next := (v.setIdx.Load() + 1) & v.mask
	if g := v.getIdx.Load(); next == g {
		// the reader holds this slot
		next = (g + 1) & v.mask
	}
	return next
}

func (v *latestValue[T]) publish(val T) (T, bool) {
	idx := v.nextIndex()
	old, ok := v.slots[idx].replace(val)
	// publish the slot: the setIdx store pairs with the reader's setIdx load
	v.setIdx.Store(idx)
	return old, ok
}

func (v *latestValue[T]) take() (T, error) {
	set := v.setIdx.Load()
	if set == v.getIdx.Load() {
		var zero T
		return zero, ErrEmpty
	}

	// claim before draining: once getIdx names this slot the writer's
	// slot selection steps over it
	v.getIdx.Store(set)

	val, ok := v.slots[set].take()
	if !ok {
		// a published position always holds a value
		panic("value slot empty at published position")
	}
	return val, nil
}

func (v *latestValue[T]) peek() (T, error) {
	set := v.setIdx.Load()
	if set == v.getIdx.Load() {
		var zero T
		return zero, ErrEmpty
	}

	// same claim as take; only the payload handling differs
	v.getIdx.Store(set)

	val, ok := v.slots[set].get()
	if !ok {
		panic("value slot empty at published position")
	}
	return val, nil
}

func (v *latestValue[T]) discard() bool {
	set := v.setIdx.Load()
	if set == v.getIdx.Load() {
		return false
	}
	v.getIdx.Store(set)
	return true
}

func (v *latestValue[T]) changed() bool {
	return v.setIdx.Load() != v.getIdx.Load()
}

func (v *latestValue[T]) at(idx uint64) (T, bool) {
	return v.slots[idx].get()
}

func (v *latestValue[T]) clear() {
	v.setIdx.Store(0)
	v.getIdx.Store(0)
	for i := range v.slots {
		v.slots[i].clear()
	}
}

// ValueWriter is the producer half of a latest-value cell. NewLatestValue
// creates it bound to exactly one ValueReader; there is no way to obtain
// a second ValueWriter for the same cell.
// IMPORTANT: must be used by a single writer goroutine.
type ValueWriter[T any] struct {
	cell *latestValue[T]
}

// Publish stores v as the latest value. It always succeeds; a published
// value the reader never took may be displaced by it. The previous
// occupant of the chosen slot, if any, is handed back to the caller
// rather than dropped, so superseded values (and primed buffers) rotate
// back to the writer instead of leaking.
func (w *ValueWriter[T]) Publish(v T) (old T, ok bool) {
	return w.cell.publish(v)
}

// Changed reports whether a published value has not been claimed yet.
// Advisory only: the answer may be stale before the caller can act on
// it.
func (w *ValueWriter[T]) Changed() bool {
	return w.cell.changed()
}

// Unchanged is the negation of Changed. Advisory only.
func (w *ValueWriter[T]) Unchanged() bool {
	return !w.cell.changed()
}

// At copies the occupant of slot idx out, bypassing the cursor protocol.
// For diagnostics and tests only: calling it while the other side is
// active is a data race on that slot.
func (w *ValueWriter[T]) At(idx uint64) (T, bool) {
	return w.cell.at(idx)
}

// Clear resets both cursors and drops every stored value. It touches
// the reader's cursor, so it may only be called while both sides are
// quiescent; it is a reset between runs, not part of the concurrent
// protocol.
func (w *ValueWriter[T]) Clear() {
	w.cell.clear()
}

// Depth returns the number of slots.
func (w *ValueWriter[T]) Depth() uint64 {
	return w.cell.depth
}

func (w *ValueWriter[T]) String() string {
	c := w.cell
	return fmt.Sprintf("ValueWriter{set=%d get=%d depth=%d}",
		c.setIdx.Load(), c.getIdx.Load(), c.depth)
}

// ValueReader is the consumer half of a latest-value cell, bound to
// exactly one ValueWriter by NewLatestValue.
// IMPORTANT: must be used by a single reader goroutine.
type ValueReader[T any] struct {
	cell *latestValue[T]
}

// Take claims and removes the most recently published value. Values
// published between the previous claim and this one are skipped, not
// delivered. Returns ErrEmpty if nothing was published since the last
// claim. Never blocks and never retries internally.
func (r *ValueReader[T]) Take() (T, error) {
	return r.cell.take()
}

// TakeContext retries Take until a value arrives or ctx is done,
// yielding the processor between attempts.
func (r *ValueReader[T]) TakeContext(ctx context.Context) (T, error) {
	for {
		v, err := r.cell.take()
		if err == nil {
			return v, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		default:
		}
		runtime.Gosched()
	}
}

// Peek claims the most recently published value like Take but copies it
// out instead of removing it: a later Take without a new Publish fails
// with ErrEmpty, while the value itself stays in its slot (visible to
// At, displaced by a later Publish that reaches the slot).
func (r *ValueReader[T]) Peek() (T, error) {
	return r.cell.peek()
}

// Discard claims the most recently published value without reading it,
// marking anything pending as consumed. Reports whether there was a
// value to discard.
func (r *ValueReader[T]) Discard() bool {
	return r.cell.discard()
}

// Changed reports whether a new value has been published since the last
// claim. Advisory only: the answer may be stale before the caller can
// act on it. Treat the result of the next Take as authoritative.
func (r *ValueReader[T]) Changed() bool {
	return r.cell.changed()
}

// Unchanged is the negation of Changed. Advisory only.
func (r *ValueReader[T]) Unchanged() bool {
	return !r.cell.changed()
}

// At copies the occupant of slot idx out, bypassing the cursor protocol.
// For diagnostics and tests only: calling it while the other side is
// active is a data race on that slot.
func (r *ValueReader[T]) At(idx uint64) (T, bool) {
	return r.cell.at(idx)
}

// Depth returns the number of slots.
func (r *ValueReader[T]) Depth() uint64 {
	return r.cell.depth
}

func (r *ValueReader[T]) String() string {
	c := r.cell
	return fmt.Sprintf("ValueReader{set=%d get=%d depth=%d}",
		c.setIdx.Load(), c.getIdx.Load(), c.depth)
}

// NewLatestValue allocates a latest-value cell of the given depth and
// returns its bound ValueWriter/ValueReader pair.
// Depth must be a power of two (1<<k) and at least 2. At depth 2 a
// publish racing a claim can still land on the slot the reader is about
// to drain; depth 4 gives the reader a full slot of headroom and is the
// recommended minimum when values are wider than a word.
func NewLatestValue[T any](depth uint64) (*ValueWriter[T], *ValueReader[T]) {
	c := newLatestValue[T](depth, nil)
	return &ValueWriter[T]{cell: c}, &ValueReader[T]{cell: c}
}

// NewLatestValueInit is NewLatestValue with every slot primed by
// init(i). Primed values are visible to At and are handed back by
// Publish as displaced occupants, which makes a fixed set of buffers
// rotate between writer and reader without further allocation.
func NewLatestValueInit[T any](depth uint64, init func(i uint64) T) (*ValueWriter[T], *ValueReader[T]) {
	c := newLatestValue[T](depth, init)
	return &ValueWriter[T]{cell: c}, &ValueReader[T]{cell: c}
}
