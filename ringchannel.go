package lockfree

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// ringChannel is the cell shared by a Sender/Receiver pair.
// SPSC: single-producer, single-consumer, bounded, lock-free.
//
// head and tail always stay inside [0, capacity). One slot is kept
// permanently vacant so that head == tail can only mean empty and
// (head+1) == tail can only mean full; a ring built with capacity
// slots therefore holds at most capacity-1 values.
type ringChannel[T any] struct {
	// Optional padding to avoid false sharing between frequently accessed fields
	_        cpu.CacheLinePad
	mask     uint64
	capacity uint64
	slots    []slot[T]
	_        cpu.CacheLinePad
	head     atomic.Uint64 // next write position, updated by the producer only
	_        cpu.CacheLinePad
	tail     atomic.Uint64 // next read position, updated by the consumer only
	_        cpu.CacheLinePad
}

// newRingChannel allocates the shared cell.
// Capacity must be a power of two (1<<k) and at least 2.
func newRingChannel[T any](capacity uint64, init func(i uint64) T) *ringChannel[T] {
	checkCapacity(capacity)

	slots := make([]slot[T], capacity)
	if init != nil {
		for i := uint64(0); i < capacity; i++ {
			// prime the slot storage; Pop never returns these
			slots[i].replace(init(i))
		}
	}

	return &ringChannel[T]{
		mask:     capacity - 1,
		capacity: capacity,
		slots:    slots,
	}
}

func (q *ringChannel[T]) push(v T) error {
	head := q.head.Load()
	next := (head + 1) & q.mask
	if next == q.tail.Load() {
		// the slot ahead still belongs to the consumer => ring is full
		return ErrFull
	}

	// tail has advanced past this slot, its previous occupant is consumed
	q.slots[head].replace(v)
	// publish the value: the head store pairs with the consumer's head load
	q.head.Store(next)
	return nil
}

func (q *ringChannel[T]) pop() (T, error) {
	tail := q.tail.Load()
	if tail == q.head.Load() {
		var zero T
		return zero, ErrEmpty
	}

	v, ok := q.slots[tail].take()
	if !ok {
		// a position behind head always holds a value
		panic("ring slot empty at occupied position")
	}
	// release the slot: the tail store pairs with the producer's tail load
	q.tail.Store((tail + 1) & q.mask)
	return v, nil
}

func (q *ringChannel[T]) isEmpty() bool {
	return q.head.Load() == q.tail.Load()
}

func (q *ringChannel[T]) isFull() bool {
	return (q.head.Load()+1)&q.mask == q.tail.Load()
}

func (q *ringChannel[T]) length() uint64 {
	head := q.head.Load()
	tail := q.tail.Load()
	return (head + q.capacity - tail) & q.mask
}

// Sender is the producer half of a ring channel. NewRingChannel creates
// it bound to exactly one Receiver; there is no way to obtain a second
// Sender for the same ring, which is what makes the unsynchronized slot
// writes safe.
// IMPORTANT: must be used by a single producer goroutine.
type Sender[T any] struct {
	ring *ringChannel[T]
}

// Push stores v at the write cursor and makes it visible to the Receiver.
// Returns ErrFull if no free slot is available; v is not stored and the
// caller keeps it. Never blocks and never retries internally.
func (s *Sender[T]) Push(v T) error {
	return s.ring.push(v)
}

// PushContext retries Push until it succeeds or ctx is done, yielding
// the processor between attempts. The retry policy lives entirely in
// this helper; the ring itself stays non-blocking.
func (s *Sender[T]) PushContext(ctx context.Context, v T) error {
	for {
		if err := s.ring.push(v); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		runtime.Gosched()
	}
}

// IsFull reports whether the ring was full at the instant of the call.
// Advisory only: the answer may be stale before the caller can act on
// it. Treat the result of the next Push as authoritative.
func (s *Sender[T]) IsFull() bool {
	return s.ring.isFull()
}

// IsEmpty reports whether the ring was empty at the instant of the call.
// Advisory only, see IsFull.
func (s *Sender[T]) IsEmpty() bool {
	return s.ring.isEmpty()
}

// Len returns the number of buffered values at the instant of the call.
// Advisory only, see IsFull.
func (s *Sender[T]) Len() uint64 {
	return s.ring.length()
}

// Cap returns the usable capacity: one slot less than the constructed
// size, because one position is reserved to tell full from empty.
func (s *Sender[T]) Cap() uint64 {
	return s.ring.capacity - 1
}

func (s *Sender[T]) String() string {
	q := s.ring
	return fmt.Sprintf("Sender{head=%d tail=%d len=%d cap=%d}",
		q.head.Load(), q.tail.Load(), q.length(), q.capacity-1)
}

// Receiver is the consumer half of a ring channel, bound to exactly one
// Sender by NewRingChannel.
// IMPORTANT: must be used by a single consumer goroutine.
type Receiver[T any] struct {
	ring *ringChannel[T]
}

// Pop removes and returns the oldest buffered value. The value itself is
// handed over, not a copy: the slot is left vacant for the Sender.
// Returns ErrEmpty if nothing is buffered. Never blocks and never
// retries internally.
func (r *Receiver[T]) Pop() (T, error) {
	return r.ring.pop()
}

// PopContext retries Pop until a value arrives or ctx is done, yielding
// the processor between attempts.
func (r *Receiver[T]) PopContext(ctx context.Context) (T, error) {
	for {
		v, err := r.ring.pop()
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

// IsEmpty reports whether the ring was empty at the instant of the call.
// Advisory only: the answer may be stale before the caller can act on
// it. Treat the result of the next Pop as authoritative.
func (r *Receiver[T]) IsEmpty() bool {
	return r.ring.isEmpty()
}

// IsFull reports whether the ring was full at the instant of the call.
// Advisory only, see IsEmpty.
func (r *Receiver[T]) IsFull() bool {
	return r.ring.isFull()
}

// Len returns the number of buffered values at the instant of the call.
// Advisory only, see IsEmpty.
func (r *Receiver[T]) Len() uint64 {
	return r.ring.length()
}

// Cap returns the usable capacity, see Sender.Cap.
func (r *Receiver[T]) Cap() uint64 {
	return r.ring.capacity - 1
}

func (r *Receiver[T]) String() string {
	q := r.ring
	return fmt.Sprintf("Receiver{head=%d tail=%d len=%d cap=%d}",
		q.head.Load(), q.tail.Load(), q.length(), q.capacity-1)
}

// NewRingChannel allocates a ring of the given size and returns its
// bound Sender/Receiver pair. One slot is reserved to tell full from
// empty, so the pair exchanges at most capacity-1 values at a time.
// Capacity must be a power of two (1<<k) and at least 2.
func NewRingChannel[T any](capacity uint64) (*Sender[T], *Receiver[T]) {
	q := newRingChannel[T](capacity, nil)
	return &Sender[T]{ring: q}, &Receiver[T]{ring: q}
}

// NewRingChannelInit is NewRingChannel with every slot primed by
// init(i). Primed values only materialize the backing storage: Pop
// delivers pushed values exclusively and never returns a primed one.
func NewRingChannelInit[T any](capacity uint64, init func(i uint64) T) (*Sender[T], *Receiver[T]) {
	q := newRingChannel[T](capacity, init)
	return &Sender[T]{ring: q}, &Receiver[T]{ring: q}
}
