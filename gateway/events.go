package gateway

import (
	"sync"
	"time"
)

type EventType string

const (
	// EventSessionExpired is emitted once per expired-token episode that could
	// not be recovered. Subscribers are expected to send the user to login.
	EventSessionExpired EventType = "session_expired"
)

type Event struct {
	Type EventType
	Err  error
	At   time.Time
}

// Events is a small synchronous publish/subscribe bus.
type Events struct {
	mu          sync.RWMutex
	nextID      int
	subscribers map[int]func(Event)
}

func NewEvents() *Events {
	return &Events{subscribers: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes it again.
func (e *Events) Subscribe(fn func(Event)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.subscribers[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subscribers, id)
	}
}

// Emit delivers ev to every subscriber on the calling goroutine
func (e *Events) Emit(ev Event) {
	e.mu.RLock()
	subscribers := make([]func(Event), 0, len(e.subscribers))
	for _, fn := range e.subscribers {
		subscribers = append(subscribers, fn)
	}
	e.mu.RUnlock()

	for _, fn := range subscribers {
		fn(ev)
	}
}
