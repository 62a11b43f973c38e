package trajectory

// Queue is an intrusive FIFO of trajectories. It never allocates, so it is
// safe to pop from interrupt context. Callers provide mutual exclusion.
type Queue struct {
	head, tail *Trajectory
	length     int
}

// Push appends t. A trajectory can be in one queue at a time.
func (q *Queue) Push(t *Trajectory) error {
	if t.queued {
		return ErrAlreadyQueued
	}
	t.queued = true
	t.next = nil
	if q.tail == nil {
		q.head = t
	} else {
		q.tail.next = t
	}
	q.tail = t
	q.length++
	return nil
}

// Pop removes and returns the oldest trajectory, or nil
func (q *Queue) Pop() *Trajectory {
	t := q.head
	if t == nil {
		return nil
	}
	q.head = t.next
	if q.head == nil {
		q.tail = nil
	}
	t.next = nil
	t.queued = false
	q.length--
	return t
}

// PopDimension pops the oldest trajectory and halts if its dimension does
// not match dim.
func (q *Queue) PopDimension(dim int) *Trajectory {
	t := q.Pop()
	if t != nil {
		t.mustDimension(dim)
	}
	return t
}

// Peek returns the oldest trajectory without removing it
func (q *Queue) Peek() *Trajectory {
	return q.head
}

// Remove unlinks t; returns false when t is not in this queue
func (q *Queue) Remove(t *Trajectory) bool {
	var prev *Trajectory
	for cur := q.head; cur != nil; prev, cur = cur, cur.next {
		if cur != t {
			continue
		}
		if prev == nil {
			q.head = cur.next
		} else {
			prev.next = cur.next
		}
		if q.tail == cur {
			q.tail = prev
		}
		cur.next = nil
		cur.queued = false
		q.length--
		return true
	}
	return false
}

// Len returns the number of queued trajectories
func (q *Queue) Len() int {
	return q.length
}

// Empty reports whether the queue holds nothing
func (q *Queue) Empty() bool {
	return q.head == nil
}

// Drain pops every trajectory and releases it
func (q *Queue) Drain() int {
	n := 0
	for t := q.Pop(); t != nil; t = q.Pop() {
		t.Release()
		n++
	}
	return n
}
