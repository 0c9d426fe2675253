package events

import (
	"sync"

	"github.com/reconctl/reconctl/internal/domain/event"
)

// Handler reacts to one emitted event. A handler panicking is recovered
// by Broker so one broken subscriber cannot take down the emitter.
type Handler func(event.Event)

// Subscription lets a caller stop receiving events for the type it
// subscribed to.
type Subscription interface {
	Unsubscribe()
}

// Broker is an event.Sink that fans events out to dynamically
// registered handlers, keyed by event type, in addition to forwarding
// every event to an optional downstream sink (typically a LoggingSink).
type Broker struct {
	downstream event.Sink

	mu     sync.RWMutex
	subs   map[event.Type][]subscriptionEntry
	nextID int
}

// NewBroker returns a Broker that forwards every event to downstream
// (nil is allowed — events are then only delivered to subscribers).
func NewBroker(downstream event.Sink) *Broker {
	return &Broker{
		downstream: downstream,
		subs:       make(map[event.Type][]subscriptionEntry),
	}
}

// Emit implements event.Sink.
func (b *Broker) Emit(e event.Event) {
	if b == nil {
		return
	}
	if b.downstream != nil {
		b.downstream.Emit(e)
	}

	b.mu.RLock()
	handlers := append([]subscriptionEntry(nil), b.subs[e.Type]...)
	b.mu.RUnlock()

	for _, entry := range handlers {
		dispatch(entry.handler, e)
	}
}

func dispatch(h Handler, e event.Event) {
	defer func() { recover() }()
	h(e)
}

// Subscribe registers handler for every event of the given type.
func (b *Broker) Subscribe(t event.Type, handler Handler) Subscription {
	if b == nil || handler == nil {
		return noopSubscription{}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[t] = append(b.subs[t], subscriptionEntry{id: id, handler: handler})
	b.mu.Unlock()

	return subscription{
		cancel: func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			entries := b.subs[t]
			for i, entry := range entries {
				if entry.id == id {
					b.subs[t] = append(entries[:i], entries[i+1:]...)
					break
				}
			}
		},
	}
}

type subscriptionEntry struct {
	id      int
	handler Handler
}

type subscription struct {
	cancel func()
}

func (s subscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

var _ event.Sink = (*Broker)(nil)
