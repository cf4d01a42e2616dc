package dispatch

import (
	"sync"
	"testing"
	"time"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue[int](4)

	for i := 0; i < 3; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d) = false", i)
		}
	}
	if q.Len() != 3 {
		t.Errorf("Len() = %d, want 3", q.Len())
	}

	for i := 0; i < 3; i++ {
		v, ok := q.TryPop()
		if !ok || v != i {
			t.Fatalf("TryPop() = %d, %v; want %d, true", v, ok, i)
		}
	}
	if _, ok := q.TryPop(); ok {
		t.Error("TryPop on an empty queue = true")
	}
}

func TestQueue_GrowsAcrossWrap(t *testing.T) {
	q := NewQueue[int](4)

	// Advance head so the ring is wrapped when it fills.
	q.Push(-1)
	q.Push(-2)
	q.TryPop()
	q.TryPop()

	for i := 0; i < 50; i++ {
		q.Push(i)
	}

	stats := q.Stats()
	if stats.Queued != 50 || stats.Peak != 50 {
		t.Errorf("Queued = %d, Peak = %d; want 50, 50", stats.Queued, stats.Peak)
	}
	if stats.Capacity != 64 {
		t.Errorf("Capacity = %d, want 64", stats.Capacity)
	}
	if stats.Grows != 4 {
		t.Errorf("Grows = %d, want 4", stats.Grows)
	}

	for i := 0; i < 50; i++ {
		v, ok := q.TryPop()
		if !ok || v != i {
			t.Fatalf("TryPop() = %d, %v; want %d, true", v, ok, i)
		}
	}
}

func TestQueue_CloseDrains(t *testing.T) {
	q := NewQueue[string](2)
	q.Push("a")
	q.Push("b")
	q.Close()

	if q.Push("c") {
		t.Error("Push after Close = true")
	}

	for _, want := range []string{"a", "b"} {
		v, ok := q.Pop()
		if !ok || v != want {
			t.Errorf("Pop() = %q, %v; want %q, true", v, ok, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop on a closed, empty queue = true")
	}

	stats := q.Stats()
	if stats.Pushed != 2 || stats.Delivered != 2 || stats.Rejected != 1 {
		t.Errorf("stats = %+v, want 2 pushed, 2 delivered, 1 rejected", stats)
	}
}

func TestQueue_CloseWakesPop(t *testing.T) {
	q := NewQueue[int](1)

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("Pop after Close = true")
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not wake Pop")
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := NewQueue[int](1)

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				q.Push(i)
			}
		}()
	}
	wg.Wait()
	q.Close()

	n := 0
	for {
		if _, ok := q.Pop(); !ok {
			break
		}
		n++
	}
	if n != 1000 {
		t.Errorf("popped %d items, want 1000", n)
	}
}
