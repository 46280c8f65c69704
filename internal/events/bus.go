// Package events is the typed trade-event fan-out between the trader, the
// notifier, and metrics. Subscribers get their own buffered channel; a full
// channel drops the event for that subscriber so a slow consumer can never
// block the trading path.
package events

import (
	"log"
	"sync"
	"time"

	"github.com/balkhaev/trader-api/internal/model"
)

// Kind discriminates trade events.
type Kind string

const (
	KindPositionOpened Kind = "position_opened"
	KindPositionClosed Kind = "position_closed"
	KindPartialExit    Kind = "partial_exit"
	KindOrderRejected  Kind = "order_rejected"
)

// Event is one trade lifecycle notification.
type Event struct {
	Kind     Kind      `json:"kind"`
	Symbol   string    `json:"symbol"`
	Strategy string    `json:"strategy"`
	Price    float64   `json:"price"`
	Qty      float64   `json:"qty"`
	PnL      float64   `json:"pnl,omitempty"`
	PnLPct   float64   `json:"pnl_pct,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`

	// Position is a copy taken at publish time, safe to read concurrently.
	Position *model.Position `json:"position,omitempty"`
}

// Bus broadcasts events to all subscribers.
type Bus struct {
	mu      sync.RWMutex
	outputs []chan Event
	bufSize int
	closed  bool

	// OnDrop is called when an event is dropped for a slow subscriber.
	OnDrop func(subscriberIdx int)
}

// NewBus creates a bus with the given per-subscriber buffer size.
func NewBus(bufSize int) *Bus {
	if bufSize <= 0 {
		bufSize = 64
	}
	return &Bus{bufSize: bufSize}
}

// Subscribe creates and returns a new output channel. Subscribing after
// Close returns a closed channel.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, b.bufSize)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.outputs = append(b.outputs, ch)
	}
	b.mu.Unlock()
	return ch
}

// Publish fans the event out to every subscriber, dropping for channels that
// are full. Never blocks.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for i, ch := range b.outputs {
		select {
		case ch <- ev:
		default:
			if b.OnDrop != nil {
				b.OnDrop(i)
			} else {
				log.Printf("[events] subscriber %d full, dropping %s %s", i, ev.Kind, ev.Symbol)
			}
		}
	}
}

// Close closes all subscriber channels. Publish after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.outputs {
		close(ch)
	}
}
