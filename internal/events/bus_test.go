package events

import (
	"testing"
)

func TestBus_FanOut(t *testing.T) {
	b := NewBus(4)
	s1 := b.Subscribe()
	s2 := b.Subscribe()

	b.Publish(Event{Kind: KindPositionOpened, Symbol: "BTCUSDT"})

	for i, ch := range []<-chan Event{s1, s2} {
		select {
		case ev := <-ch:
			if ev.Symbol != "BTCUSDT" || ev.At.IsZero() {
				t.Fatalf("subscriber %d: bad event %+v", i, ev)
			}
		default:
			t.Fatalf("subscriber %d: event missing", i)
		}
	}
}

func TestBus_SlowSubscriberDropsNotBlocks(t *testing.T) {
	b := NewBus(1)
	dropped := 0
	b.OnDrop = func(int) { dropped++ }

	slow := b.Subscribe()
	b.Publish(Event{Kind: KindPositionOpened, Symbol: "A"})
	b.Publish(Event{Kind: KindPositionOpened, Symbol: "B"}) // buffer full, dropped

	if dropped != 1 {
		t.Fatalf("expected 1 drop, got %d", dropped)
	}
	if ev := <-slow; ev.Symbol != "A" {
		t.Fatalf("first event should survive, got %s", ev.Symbol)
	}
}

func TestBus_Close(t *testing.T) {
	b := NewBus(4)
	ch := b.Subscribe()
	b.Close()
	b.Publish(Event{Kind: KindPositionClosed}) // no-op

	if _, open := <-ch; open {
		t.Fatal("channel should be closed")
	}
	if _, open := <-b.Subscribe(); open {
		t.Fatal("late subscription should be closed immediately")
	}
}
