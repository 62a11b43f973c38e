package controller

import "stepcore/motion/builder"

// Ring is a bounded FIFO of preallocated movements. The producer fills the
// slot returned by Reserve in place and publishes it with Commit, so no
// movement is ever copied or allocated on the interrupt path.
type Ring struct {
	slots []builder.Movement
	head  int
	count int
}

// NewRing allocates capacity movements of dim actuators
func NewRing(capacity, dim int) *Ring {
	r := &Ring{slots: make([]builder.Movement, capacity)}
	for i := range r.slots {
		r.slots[i].Steps = make([]uint32, dim)
	}
	return r
}

// Reserve returns the slot after the newest movement, or nil when full.
// The slot becomes visible only after Commit.
func (r *Ring) Reserve() *builder.Movement {
	if r.Full() {
		return nil
	}
	return &r.slots[(r.head+r.count)%len(r.slots)]
}

// Commit publishes the reserved slot
func (r *Ring) Commit() {
	if r.Full() {
		return
	}
	r.count++
}

// Push copies m into the ring; returns false when full
func (r *Ring) Push(m *builder.Movement) bool {
	slot := r.Reserve()
	if slot == nil {
		return false
	}
	slot.CopyFrom(m)
	r.Commit()
	return true
}

// Peek returns the oldest movement without removing it, or nil
func (r *Ring) Peek() *builder.Movement {
	if r.count == 0 {
		return nil
	}
	return &r.slots[r.head]
}

// Discard removes the oldest movement
func (r *Ring) Discard() {
	if r.count == 0 {
		return
	}
	r.head = (r.head + 1) % len(r.slots)
	r.count--
}

// Len returns the number of buffered movements
func (r *Ring) Len() int { return r.count }

// Cap returns the ring capacity
func (r *Ring) Cap() int { return len(r.slots) }

// Full reports whether no slot is free
func (r *Ring) Full() bool { return r.count == len(r.slots) }

// Empty reports whether no movement is buffered
func (r *Ring) Empty() bool { return r.count == 0 }

// Reset drops every buffered movement
func (r *Ring) Reset() {
	r.head = 0
	r.count = 0
}
