package dispatch

import (
	"sync"
)

// Buffered decouples a listener from the goroutine that dispatches to it.
// OnMessage only enqueues; a dedicated goroutine delivers items to the wrapped
// listener in the order they were enqueued.
type Buffered[T any] struct {
	target Listener[T]
	queue  *Queue[T]
	done   chan struct{}
	once   sync.Once
}

// NewBuffered starts a delivery goroutine for target.
func NewBuffered[T any](target Listener[T], initialCapacity int) *Buffered[T] {
	b := &Buffered[T]{
		target: target,
		queue:  NewQueue[T](initialCapacity),
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

// OnMessage enqueues v. Items arriving after Close are dropped.
func (b *Buffered[T]) OnMessage(v T) {
	b.queue.Push(v)
}

// Close stops accepting items and waits until the queued ones are delivered.
func (b *Buffered[T]) Close() {
	b.once.Do(b.queue.Close)
	<-b.done
}

// Stats returns statistics of the underlying queue.
func (b *Buffered[T]) Stats() QueueStats {
	return b.queue.Stats()
}

func (b *Buffered[T]) run() {
	defer close(b.done)
	for {
		v, ok := b.queue.Pop()
		if !ok {
			return
		}
		b.target.OnMessage(v)
	}
}
