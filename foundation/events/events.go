// Package events fans node events out to any number of viewers.
package events

import (
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned when a viewer registers after shutdown.
var ErrClosed = errors.New("events closed")

// messageBuffer is the number of events a viewer can fall behind before
// events are dropped for it. Websocket writes can be slow.
const messageBuffer = 100

// Events maintains a mapping of viewer id and channel so goroutines can
// register and receive events.
type Events struct {
	mu     sync.RWMutex
	m      map[string]chan string
	closed bool
}

// New constructs an events value for registering and receiving events.
func New() *Events {
	return &Events{
		m: make(map[string]chan string),
	}
}

// Shutdown closes and removes every channel handed out by Acquire. Any
// later Acquire fails.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	evt.closed = true
	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that receives events. The
// same channel is returned for an id that is already registered.
func (evt *Events) Acquire(id string) (<-chan string, error) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if evt.closed {
		return nil, ErrClosed
	}

	if ch, exists := evt.m[id]; exists {
		return ch, nil
	}

	ch := make(chan string, messageBuffer)
	evt.m[id] = ch

	return ch, nil
}

// Release closes and removes the channel for the specified id.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)

	return nil
}

// Send delivers the event to every registered channel. A viewer that is
// not keeping up misses the event; Send never blocks.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.m {
		select {
		case ch <- s:
		default:
		}
	}
}

// Len returns the number of registered viewers.
func (evt *Events) Len() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}
