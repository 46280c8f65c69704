package notification

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/balkhaev/trader-api/internal/events"
)

type captureNotifier struct {
	mu     sync.Mutex
	alerts []Alert
}

func (c *captureNotifier) Send(ctx context.Context, a Alert) error {
	c.mu.Lock()
	c.alerts = append(c.alerts, a)
	c.mu.Unlock()
	return nil
}

func (c *captureNotifier) snapshot() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Alert(nil), c.alerts...)
}

func TestRelay_ConvertsEvents(t *testing.T) {
	sink := &captureNotifier{}
	relay := NewRelay(sink)

	ch := make(chan events.Event, 4)
	ch <- events.Event{Kind: events.KindPositionOpened, Symbol: "BTCUSDT", Strategy: "long", Price: 100, Qty: 1}
	ch <- events.Event{Kind: events.KindPositionClosed, Symbol: "BTCUSDT", Strategy: "long", Price: 95, PnL: -5, PnLPct: -0.05, Reason: "stop_loss"}
	ch <- events.Event{Kind: events.KindOrderRejected, Symbol: "ETHUSDT", Strategy: "rsi", Reason: "invalid qty"}
	close(ch)

	done := make(chan struct{})
	go func() {
		relay.Run(context.Background(), ch)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not drain")
	}

	alerts := sink.snapshot()
	if len(alerts) != 3 {
		t.Fatalf("expected 3 alerts, got %d", len(alerts))
	}
	if alerts[0].Level != AlertInfo || !strings.Contains(alerts[0].Title, "Opened BTCUSDT") {
		t.Errorf("bad open alert: %+v", alerts[0])
	}
	// Losing close escalates to warning
	if alerts[1].Level != AlertWarning || !strings.Contains(alerts[1].Title, "stop_loss") {
		t.Errorf("bad close alert: %+v", alerts[1])
	}
	if alerts[2].Level != AlertCritical {
		t.Errorf("rejection should be critical: %+v", alerts[2])
	}
}
