package notification

import (
	"context"
	"fmt"

	"github.com/balkhaev/trader-api/internal/events"
)

// Relay converts trade events into alerts and forwards them to a Notifier.
type Relay struct {
	notifier Notifier
}

// NewRelay creates an event-to-alert relay.
func NewRelay(n Notifier) *Relay {
	return &Relay{notifier: n}
}

// Run consumes events until ctx is cancelled or the channel closes.
func (r *Relay) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			r.notifier.Send(ctx, alertFor(ev))
		}
	}
}

func alertFor(ev events.Event) Alert {
	switch ev.Kind {
	case events.KindPositionOpened:
		return Alert{
			Level: AlertInfo,
			Title: fmt.Sprintf("Opened %s", ev.Symbol),
			Message: fmt.Sprintf("strategy=%s price=%.6g qty=%.6g",
				ev.Strategy, ev.Price, ev.Qty),
		}
	case events.KindPositionClosed:
		level := AlertInfo
		if ev.PnL < 0 {
			level = AlertWarning
		}
		return Alert{
			Level: level,
			Title: fmt.Sprintf("Closed %s (%s)", ev.Symbol, ev.Reason),
			Message: fmt.Sprintf("strategy=%s price=%.6g pnl=%.4f (%.2f%%)",
				ev.Strategy, ev.Price, ev.PnL, ev.PnLPct*100),
		}
	case events.KindPartialExit:
		return Alert{
			Level: AlertInfo,
			Title: fmt.Sprintf("Partial exit %s", ev.Symbol),
			Message: fmt.Sprintf("strategy=%s price=%.6g qty=%.6g pnl=%.4f",
				ev.Strategy, ev.Price, ev.Qty, ev.PnL),
		}
	case events.KindOrderRejected:
		return Alert{
			Level:   AlertCritical,
			Title:   fmt.Sprintf("Order rejected %s", ev.Symbol),
			Message: fmt.Sprintf("strategy=%s reason=%s", ev.Strategy, ev.Reason),
		}
	default:
		return Alert{
			Level:   AlertInfo,
			Title:   string(ev.Kind),
			Message: ev.Symbol,
		}
	}
}
