package runtime

import (
	"sync"
	"testing"
	"time"
)

func TestDispatcherFIFOPerChat(t *testing.T) {
	d := NewDispatcher()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 50; i++ {
		i := i
		d.Do("chat1", func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	d.Close()

	if len(order) != 50 {
		t.Fatalf("ran %d tasks, want 50", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("order[%d] = %d; same-chat work ran out of order", i, got)
		}
	}
}

func TestDispatcherChatsRunInParallel(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	release := make(chan struct{})
	blocked := make(chan struct{})
	d.Do("chat1", func() {
		close(blocked)
		<-release
	})
	<-blocked

	// chat1's worker is stuck; chat2 must still make progress.
	done := make(chan struct{})
	d.Do("chat2", func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("chat2 work blocked behind chat1")
	}
	close(release)
}

func TestDispatcherNoLostUpdates(t *testing.T) {
	d := NewDispatcher()

	// Unsynchronized counter: correctness relies entirely on the
	// per-chat serialization.
	counter := 0
	var producers sync.WaitGroup
	for p := 0; p < 4; p++ {
		producers.Add(1)
		go func() {
			defer producers.Done()
			for i := 0; i < 50; i++ {
				d.Do("chat1", func() { counter++ })
			}
		}()
	}
	producers.Wait()
	d.Close()

	if counter != 200 {
		t.Errorf("counter = %d, want 200; updates were lost", counter)
	}
}

func TestDispatcherCloseDrains(t *testing.T) {
	d := NewDispatcher()

	var mu sync.Mutex
	ran := 0
	for i := 0; i < 20; i++ {
		d.Do("chat1", func() {
			time.Sleep(time.Millisecond)
			mu.Lock()
			ran++
			mu.Unlock()
		})
	}
	d.Close()

	if ran != 20 {
		t.Errorf("Close returned with %d/20 tasks done", ran)
	}

	// Work submitted after Close is dropped, not queued.
	d.Do("chat1", func() { t.Error("task ran after Close") })
	d.Close() // second Close is a no-op
}
