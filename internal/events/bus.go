// Package events is the in-process event bus linking the pipelines to
// progress logging and metrics.
package events

import (
	"sync"

	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
// Delivery is asynchronous; Drain waits for handlers to catch up.
type Bus struct {
	dispatcher *event.Dispatcher

	mu      sync.Mutex
	subs    map[uint32]int
	pending sync.WaitGroup
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
		subs:       make(map[uint32]int),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(SampleConverted{...})
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}

	b.mu.Lock()
	b.pending.Add(b.subs[ev.Type()])
	b.mu.Unlock()

	switch e := ev.(type) {
	case SampleConverted:
		event.Publish(b.dispatcher, e)
	case SampleFailed:
		event.Publish(b.dispatcher, e)
	case BatchValidated:
		event.Publish(b.dispatcher, e)
	case SlotEncoded:
		event.Publish(b.dispatcher, e)
	case SlotPlayed:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function. The handler
// type selects the events it receives. Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e SlotEncoded) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(SampleConverted):
		return subscribe(b, h)
	case func(SampleFailed):
		return subscribe(b, h)
	case func(BatchValidated):
		return subscribe(b, h)
	case func(SlotEncoded):
		return subscribe(b, h)
	case func(SlotPlayed):
		return subscribe(b, h)
	default:
		return func() {}
	}
}

// Drain blocks until every event published so far has been handled.
// Subscriptions must not change while events are in flight.
func (b *Bus) Drain() {
	if b == nil {
		return
	}
	b.pending.Wait()
}

func subscribe[T Event](b *Bus, handler func(T)) func() {
	var zero T
	typ := zero.Type()

	b.mu.Lock()
	b.subs[typ]++
	b.mu.Unlock()

	unsub := event.Subscribe(b.dispatcher, func(e T) {
		defer b.pending.Done()
		handler(e)
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			unsub()
			b.mu.Lock()
			b.subs[typ]--
			b.mu.Unlock()
		})
	}
}
