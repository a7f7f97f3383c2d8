// Package app runs the per-frame tracking loop and publishes its events.
package app

import "sync"

// EventType identifies different runner events.
type EventType int

const (
	EventFrame    EventType = iota // data: tracker.Event
	EventSkipped                   // data: error for the skipped frame
	EventRewind                    // data: nil
	EventFinished                  // data: Stats
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Bus dispatches runner events to listeners.
type Bus struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventListener
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[EventType][]EventListener)}
}

// On registers an event listener for the specified event type.
func (b *Bus) On(event EventType, listener EventListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[event] = append(b.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (b *Bus) Emit(event EventType, data interface{}) {
	b.mu.RLock()
	listeners := b.listeners[event]
	b.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}
