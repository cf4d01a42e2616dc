package dispatch

import (
	"testing"
	"time"
)

func TestBuffered_DeliversInOrder(t *testing.T) {
	rec := &recorder{}
	b := NewBuffered[string](rec, 2)

	for _, v := range []string{"a", "b", "c", "d", "e"} {
		b.OnMessage(v)
	}
	b.Close()

	got := rec.values()
	want := []string{"a", "b", "c", "d", "e"}
	if len(got) != len(want) {
		t.Fatalf("delivered %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d = %q, want %q", i, got[i], want[i])
		}
	}

	// Items after Close are dropped.
	b.OnMessage("late")
	if got := rec.values(); len(got) != len(want) {
		t.Errorf("item delivered after Close: %v", got)
	}
}

func TestBuffered_DoesNotBlockProducer(t *testing.T) {
	release := make(chan struct{})
	slow := ListenerFunc[int](func(int) { <-release })
	b := NewBuffered[int](slow, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.OnMessage(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("producer blocked on a slow listener")
	}

	close(release)
	b.Close()

	if stats := b.Stats(); stats.Delivered != 100 {
		t.Errorf("Delivered = %d, want 100", stats.Delivered)
	}
}
