package boardlink

import (
	"sync"
	"time"
)

// EventKind classifies an event published by the controller
type EventKind string

const (
	EventLog       EventKind = "log"
	EventTelemetry EventKind = "telemetry"
	EventRawLine   EventKind = "raw_line"
	EventState     EventKind = "state"
)

// Event is delivered to listeners and subscribers.
// Which payload field is set depends on Kind.
type Event struct {
	Kind    EventKind
	Time    time.Time
	Session string

	Log   LogEntry        // EventLog
	Line  Line            // EventTelemetry, EventRawLine
	State ConnectionState // EventState
	Err   error           // EventState, when entering StateError
}

const defaultSubscriberBuffer = 64

type subscriber struct {
	ch chan Event
}

type listener struct {
	fn func(Event)
}

// EventBus fans controller events out to callbacks and channels.
// Callbacks run synchronously on the publishing goroutine in registration
// order. Channel subscribers whose buffer is full miss the event.
type EventBus struct {
	mu        sync.RWMutex
	listeners []*listener
	subs      map[*subscriber]struct{}
}

// NewEventBus constructs a ready EventBus
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[*subscriber]struct{})}
}

// Listen registers fn and returns a function that removes it
func (b *EventBus) Listen(fn func(Event)) func() {
	l := &listener{fn: fn}
	b.mu.Lock()
	b.listeners = append(b.listeners, l)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, cur := range b.listeners {
			if cur == l {
				b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// Subscribe registers a buffered channel. The returned function must be
// called to unsubscribe; it closes the channel.
func (b *EventBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	s := &subscriber{ch: make(chan Event, buffer)}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, s)
			b.mu.Unlock()
			close(s.ch)
		})
	}
	return s.ch, unsub
}

// Publish delivers e to every listener, then every subscriber
func (b *EventBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.RLock()
	listeners := make([]*listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, l := range listeners {
		l.fn(e)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		select {
		case s.ch <- e:
		default:
		}
	}
}

// Len returns the number of registered listeners and subscribers
func (b *EventBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners) + len(b.subs)
}
