// Package events is the in-process bus that carries state changes to
// observers (metrics, the status LED, API streams). Nothing on the bus
// mutates animation state; delivery is asynchronous.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates an event bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish sends e to every subscriber of its concrete type.
func Publish[T Event](b *Bus, e T) {
	if b == nil {
		return
	}
	event.Publish(b.dispatcher, e)
}

// Subscribe registers fn for events of type T and returns the unsubscribe func.
func Subscribe[T Event](b *Bus, fn func(T)) func() {
	return event.Subscribe(b.dispatcher, fn)
}

// SubscribeToChannel forwards events of type T into ch, dropping them when
// ch is full. SSE handlers select on ch.
func SubscribeToChannel[T Event](b *Bus, ch chan<- any) func() {
	return event.Subscribe(b.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
