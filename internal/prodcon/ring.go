package prodcon

// Capacity is the fixed slot count of the ring buffer. The buffer holds at
// most Capacity-1 values: it is full when the tail is one slot behind the
// head (mod Capacity).
const Capacity = 100

// RingBuffer is a fixed-capacity circular queue over contiguous storage.
// head is the index of the oldest element, or -1 when the buffer is empty;
// tail is the index the next Push writes to.
//
// RingBuffer does no locking of its own. The engine holds a single mutex
// across every predicate-then-mutate sequence, because checking Full/Empty
// and then pushing/popping must be atomic under concurrent workers.
type RingBuffer struct {
	slots [Capacity]int
	head  int
	tail  int
}

// NewRingBuffer returns an empty buffer.
func NewRingBuffer() *RingBuffer {
	return &RingBuffer{head: -1}
}

// Empty reports whether the buffer holds no values.
func (r *RingBuffer) Empty() bool {
	return r.head < 0
}

// Full reports whether another Push would exceed capacity.
func (r *RingBuffer) Full() bool {
	return !r.Empty() && (r.tail+1)%Capacity == r.head
}

// Len returns the number of stored values, always in [0, Capacity-1].
func (r *RingBuffer) Len() int {
	if r.Empty() {
		return 0
	}
	return (r.tail - r.head + Capacity) % Capacity
}

// Push appends v at the tail. Callers must have verified the buffer is not
// full while holding the engine lock; pushing into a full buffer is a caller
// contract violation and fails loudly.
func (r *RingBuffer) Push(v int) {
	if r.Full() {
		panic("prodcon: push into full ring buffer")
	}
	r.slots[r.tail] = v
	if r.head < 0 {
		r.head = r.tail
	}
	r.tail = (r.tail + 1) % Capacity
}

// Pop removes and returns the oldest value. Callers must have verified the
// buffer is not empty while holding the engine lock.
func (r *RingBuffer) Pop() int {
	if r.Empty() {
		panic("prodcon: pop from empty ring buffer")
	}
	v := r.slots[r.head]
	r.head = (r.head + 1) % Capacity
	if r.head == r.tail {
		r.head = -1
	}
	return v
}
