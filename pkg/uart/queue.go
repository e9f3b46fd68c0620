package uart

import (
	"context"
	"sync"
)

// DefaultQueueSize is the default depth of an EventQueue.
const DefaultQueueSize = 5

// EventQueue is a bounded FIFO of Events. Posting is safe from any number
// of producers and never blocks, Receive is for a single consumer.
type EventQueue struct {
	ch   chan Event
	lock sync.Mutex
}

// NewEventQueue creates an EventQueue holding at most size events.
func NewEventQueue(size int) *EventQueue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &EventQueue{ch: make(chan Event, size)}
}

// Post enqueues ev, and returns false if the queue is full.
func (q *EventQueue) Post(ev Event) bool {
	q.lock.Lock()
	defer q.lock.Unlock()
	select {
	case q.ch <- ev:
		return true
	default:
		return false
	}
}

// Receive waits for the next event.
func (q *EventQueue) Receive(ctx context.Context) (Event, error) {
	select {
	case ev := <-q.ch:
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Reset discards all queued events. Producers are held off until
// the queue is empty.
func (q *EventQueue) Reset() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	var n int
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	return len(q.ch)
}

// Cap returns the capacity of the queue.
func (q *EventQueue) Cap() int {
	return cap(q.ch)
}
