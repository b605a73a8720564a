package lockfree

import "errors"

// Both primitives report refusal through these sentinels. They are the
// only errors the package returns: everything else that could go wrong
// is a synchronization defect and panics instead.
var (
	ErrFull  = errors.New("lockfree: buffer is full")
	ErrEmpty = errors.New("lockfree: buffer is empty")
)

// slot is an explicit empty/present container. Storing is a replace and
// removing is a take, so a vacant position is always distinguishable
// from a stored zero value and nothing is ever read uninitialized.
type slot[T any] struct {
	val  T    // actual value stored in this slot
	full bool // whether val is a stored value or leftover storage
}

// replace stores v and returns the previous occupant, if any.
func (s *slot[T]) replace(v T) (old T, ok bool) {
	old, ok = s.val, s.full
	s.val, s.full = v, true
	return old, ok
}

// take removes and returns the occupant, leaving the slot vacant.
func (s *slot[T]) take() (v T, ok bool) {
	if !s.full {
		return v, false
	}
	v = s.val
	var zero T
	s.val, s.full = zero, false
	return v, true
}

// get copies the occupant out without removing it.
func (s *slot[T]) get() (v T, ok bool) {
	return s.val, s.full
}

// clear drops the occupant, if any.
func (s *slot[T]) clear() {
	var zero T
	s.val, s.full = zero, false
}

// checkCapacity validates a constructor capacity/depth argument.
// Two is the floor: both primitives need one position of slack beyond
// the value being exchanged.
func checkCapacity(capacity uint64) {
	if capacity < 2 || (capacity&(capacity-1)) != 0 {
		panic("capacity must be power of 2 and >= 2")
	}
}
