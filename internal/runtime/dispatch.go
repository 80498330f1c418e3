package runtime

import (
	"sync"
)

// queueDepth bounds each chat's pending work; Do blocks when full,
// applying backpressure to the transport.
const queueDepth = 64

// Dispatcher serializes work per chat: one inbound event, including
// all resulting state mutation, completes before the next begins for
// that chat. Work for different chats runs fully in parallel.
type Dispatcher struct {
	mu     sync.RWMutex
	queues map[string]chan func()
	wg     sync.WaitGroup
	closed bool
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{queues: make(map[string]chan func())}
}

// Do enqueues fn on the chat's FIFO queue, lazily starting its
// worker. After Close, fn is dropped. Sends happen under the read
// lock so Close cannot close a queue out from under a producer.
func (d *Dispatcher) Do(chatID string, fn func()) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return
	}
	if q, ok := d.queues[chatID]; ok {
		q <- fn
		d.mu.RUnlock()
		return
	}
	d.mu.RUnlock()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	q, ok := d.queues[chatID]
	if !ok {
		q = make(chan func(), queueDepth)
		d.queues[chatID] = q
		d.wg.Add(1)
		go d.worker(q)
	}
	q <- fn
	d.mu.Unlock()
}

func (d *Dispatcher) worker(q chan func()) {
	defer d.wg.Done()
	for fn := range q {
		fn()
	}
}

// Close stops accepting work and waits for all queues to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()

	d.wg.Wait()
}
