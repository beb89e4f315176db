package stream

// Ring is a fixed-capacity FIFO buffer that overwrites the oldest entry
// once full. Push is O(1) and the buffer never grows past its capacity.
// Ring is not safe for concurrent use; the engine serializes access.
type Ring[T any] struct {
	buf   []T
	head  int // next write slot
	count int
}

// NewRing allocates a ring holding at most capacity entries.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v, evicting the oldest entry when the ring is full.
func (r *Ring[T]) Push(v T) {
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Len returns the number of live entries.
func (r *Ring[T]) Len() int { return r.count }

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Items returns the live entries oldest first.
func (r *Ring[T]) Items() []T {
	return r.Last(r.count)
}

// Last returns the most recent n entries in insertion order. A non-positive
// n, or one past the live count, returns everything.
func (r *Ring[T]) Last(n int) []T {
	if n <= 0 || n > r.count {
		n = r.count
	}
	out := make([]T, 0, n)
	start := r.head - n + len(r.buf)
	for i := 0; i < n; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}
