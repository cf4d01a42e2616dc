package dispatch

import "sync"

// Queue is an unbounded FIFO backed by a ring that doubles when full.
// Push never blocks, so a producer is never held up by its consumer.
type Queue[T any] struct {
	mu     sync.Mutex
	ready  *sync.Cond
	ring   []T
	head   int
	size   int
	closed bool
	stats  QueueStats
}

// QueueStats describes a Queue's traffic.
type QueueStats struct {
	Queued    int   // Items waiting
	Capacity  int   // Current ring size
	Peak      int   // Largest backlog seen
	Pushed    int64 // Items accepted
	Delivered int64 // Items handed to the consumer
	Rejected  int64 // Pushes after Close
	Grows     int
}

// NewQueue returns a queue whose ring starts at capacity slots.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	q := &Queue[T]{ring: make([]T, capacity)}
	q.ready = sync.NewCond(&q.mu)
	return q
}

// Push appends v. It reports false once the queue is closed.
func (q *Queue[T]) Push(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.stats.Rejected++
		return false
	}
	if q.size == len(q.ring) {
		q.resizeLocked(2 * len(q.ring))
	}

	q.ring[(q.head+q.size)%len(q.ring)] = v
	q.size++
	q.stats.Pushed++
	q.stats.Peak = max(q.stats.Peak, q.size)

	q.ready.Signal()
	return true
}

// Pop blocks until an item is available. After Close it drains the
// remaining items and then reports false.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size == 0 && !q.closed {
		q.ready.Wait()
	}
	return q.takeLocked()
}

// TryPop is Pop without waiting.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.takeLocked()
}

// Close rejects further pushes and wakes waiting consumers.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.ready.Broadcast()
}

// Len returns the backlog.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Stats returns a snapshot of the queue's counters.
func (q *Queue[T]) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.stats
	s.Queued = q.size
	s.Capacity = len(q.ring)
	return s
}

func (q *Queue[T]) takeLocked() (T, bool) {
	var zero T
	if q.size == 0 {
		return zero, false
	}
	v := q.ring[q.head]
	q.ring[q.head] = zero
	q.head = (q.head + 1) % len(q.ring)
	q.size--
	q.stats.Delivered++
	return v, true
}

// resizeLocked unrolls the ring into a new slice of n slots.
func (q *Queue[T]) resizeLocked(n int) {
	next := make([]T, n)
	for i := 0; i < q.size; i++ {
		next[i] = q.ring[(q.head+i)%len(q.ring)]
	}
	q.ring = next
	q.head = 0
	q.stats.Grows++
}
