package buffer

// ring is a fixed-size FIFO queue. It is not safe for concurrent use; the
// owning store serializes access.
type ring[T any] struct {
	items    []T
	capacity int
	size     int
	head     int // next write position
	tail     int // next read position
}

func newRing[T any](capacity int) *ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &ring[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// push appends item. When the ring is full the policy decides which item is
// lost; the lost item is returned with dropped set.
func (r *ring[T]) push(item T, policy OverflowPolicy) (lost T, dropped bool) {
	if r.size == r.capacity {
		if policy == DropNewest {
			return item, true
		}
		lost, _ = r.pop()
		dropped = true
	}

	r.items[r.head] = item
	r.head = (r.head + 1) % r.capacity
	r.size++
	return lost, dropped
}

func (r *ring[T]) pop() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}

	item := r.items[r.tail]
	r.items[r.tail] = zero
	r.tail = (r.tail + 1) % r.capacity
	r.size--
	return item, true
}

func (r *ring[T]) len() int { return r.size }
