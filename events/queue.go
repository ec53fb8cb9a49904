package events

import (
	"context"
	"errors"
	"sync"
)

const defaultQueueSize = 100

var (
	ErrQueueFull   = errors.New("event queue is full")
	ErrQueueClosed = errors.New("event queue is closed")
)

// EventQueue is a bounded FIFO of events. Enqueue never blocks: when the queue is
// full or closed the event is rejected.
type EventQueue struct {
	events chan *Event
	mu     sync.RWMutex
	closed bool
}

func NewEventQueue(bufferSize int) *EventQueue {
	if bufferSize <= 0 {
		bufferSize = defaultQueueSize
	}
	return &EventQueue{
		events: make(chan *Event, bufferSize),
	}
}

// Enqueue returns ErrQueueClosed after Close and ErrQueueFull when the buffer
// has no room.
func (eq *EventQueue) Enqueue(event *Event) error {
	eq.mu.RLock()
	defer eq.mu.RUnlock()

	if eq.closed {
		return ErrQueueClosed
	}

	select {
	case eq.events <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// NextEvent blocks until the next event is available or ctx is cancelled.
func (eq *EventQueue) NextEvent(ctx context.Context) (*Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case event, ok := <-eq.events:
		if !ok {
			return nil, context.Canceled
		}
		return event, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetAndClearPendingEvents returns all pending events without blocking.
func (eq *EventQueue) GetAndClearPendingEvents() []*Event {
	events := []*Event{}
	for {
		select {
		case event, ok := <-eq.events:
			if !ok {
				return events
			}
			events = append(events, event)
		default:
			return events
		}
	}
}

func (eq *EventQueue) Len() int {
	return len(eq.events)
}

func (eq *EventQueue) Close() {
	eq.mu.Lock()
	defer eq.mu.Unlock()

	if !eq.closed {
		eq.closed = true
		close(eq.events)
	}
}
