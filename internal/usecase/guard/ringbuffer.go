package guard

// RingBuffer keeps the most recent Cap values; pushing into a full buffer evicts the oldest.
// It is not safe for concurrent use.
type RingBuffer[T any] struct {
	items []T
	head  int
	size  int
}

func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer[T]{items: make([]T, capacity)}
}

func (r *RingBuffer[T]) Push(v T) {
	idx := (r.head + r.size) % len(r.items)
	if r.size == len(r.items) {
		r.items[r.head] = v
		r.head = (r.head + 1) % len(r.items)
		return
	}
	r.items[idx] = v
	r.size++
}

// Items returns a copy of the contents, oldest first.
func (r *RingBuffer[T]) Items() []T {
	out := make([]T, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.items[(r.head+i)%len(r.items)])
	}
	return out
}

func (r *RingBuffer[T]) Len() int { return r.size }
func (r *RingBuffer[T]) Cap() int { return len(r.items) }

func (r *RingBuffer[T]) Reset() {
	clear(r.items)
	r.head = 0
	r.size = 0
}
