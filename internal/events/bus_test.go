package events

import (
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan PatternChangedEvent, 1)

	unsub := Subscribe(bus, func(e PatternChangedEvent) {
		received <- e
	})
	defer unsub()

	Publish(bus, PatternChangedEvent{Index: 2, Name: "knight_rider", Count: 5, Source: "button"})

	select {
	case got := <-received:
		if got.Index != 2 || got.Name != "knight_rider" {
			t.Errorf("got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestBus_TypeIsolation(t *testing.T) {
	bus := New()
	speed := make(chan SpeedChangedEvent, 1)
	presses := make(chan ButtonPressedEvent, 1)

	defer Subscribe(bus, func(e SpeedChangedEvent) { speed <- e })()
	defer Subscribe(bus, func(e ButtonPressedEvent) { presses <- e })()

	Publish(bus, SpeedChangedEvent{DelayMs: 200})
	<-speed

	select {
	case <-presses:
		t.Fatal("button subscriber received a speed event")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan AnimationStateEvent, 1)

	unsub := Subscribe(bus, func(e AnimationStateEvent) { received <- e })
	Publish(bus, AnimationStateEvent{Running: true})
	<-received

	unsub()
	Publish(bus, AnimationStateEvent{Running: false})
	select {
	case <-received:
		t.Fatal("received event after unsubscribe")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := New()
	const publishers, each = 8, 50
	got := make(chan struct{}, publishers*each)

	defer Subscribe(bus, func(ButtonPressedEvent) { got <- struct{}{} })()

	var wg sync.WaitGroup
	for p := range publishers {
		wg.Add(1)
		go func(line int) {
			defer wg.Done()
			for range each {
				Publish(bus, ButtonPressedEvent{Line: line, Action: "next_pattern"})
			}
		}(p)
	}
	wg.Wait()

	for range publishers * each {
		select {
		case <-got:
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for all events")
		}
	}
}

func TestSubscribeToChannel_DropsWhenFull(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)
	defer SubscribeToChannel[SpeedChangedEvent](bus, ch)()

	Publish(bus, SpeedChangedEvent{DelayMs: 100})
	Publish(bus, SpeedChangedEvent{DelayMs: 150})

	select {
	case e := <-ch:
		if _, ok := e.(SpeedChangedEvent); !ok {
			t.Fatalf("unexpected %T", e)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestPublish_NilBusIsNoop(t *testing.T) {
	Publish[SpeedChangedEvent](nil, SpeedChangedEvent{})
}
