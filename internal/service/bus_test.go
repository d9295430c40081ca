package service

import "testing"

func TestEventBusFilters(t *testing.T) {
	bus := NewEventBus()
	all := bus.Subscribe(nil)
	one := bus.Subscribe(ForSession("a"))
	defer bus.Unsubscribe(all)
	defer bus.Unsubscribe(one)

	bus.Publish(Event{Resource: "sessions", Action: "address", ID: "b", Href: "x"})
	bus.Publish(Event{Resource: "layers", Action: "created", ID: "a"})
	bus.Publish(Event{Resource: "sessions", Action: "address", ID: "a", Href: "y"})

	if n := len(all.C); n != 3 {
		t.Errorf("unfiltered subscriber got %d events, want 3", n)
	}
	if n := len(one.C); n != 1 {
		t.Fatalf("session subscriber got %d events, want 1", n)
	}
	if e := <-one.C; e.Href != "y" {
		t.Errorf("event = %+v", e)
	}
}

func TestEventBusDropsForSlowSubscribers(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(nil)
	for i := 0; i < 20; i++ {
		bus.Publish(Event{Resource: "layers"})
	}
	if got := bus.Dropped(); got != 4 {
		t.Errorf("Dropped() = %d, want 4", got)
	}
	bus.Unsubscribe(sub)
	bus.Unsubscribe(sub)

	n := 0
	for range sub.C {
		n++
	}
	if n != 16 {
		t.Errorf("buffered %d events, want 16", n)
	}
}
