package metrics

import (
	"context"

	"github.com/balkhaev/trader-api/internal/events"
)

// ObserveEvents consumes trade events and keeps the lifecycle metrics
// current. Runs until ctx is cancelled or the channel closes.
func (m *Metrics) ObserveEvents(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			m.observe(ev)
		}
	}
}

func (m *Metrics) observe(ev events.Event) {
	switch ev.Kind {
	case events.KindPositionOpened:
		m.OpenPositions.Inc()
	case events.KindPositionClosed:
		m.OpenPositions.Dec()
		m.ClosesTotal.WithLabelValues(ev.Reason).Inc()
		if ev.PnL >= 0 {
			m.RealizedPnL.Add(ev.PnL)
		} else {
			m.RealizedLoss.Add(-ev.PnL)
		}
	case events.KindPartialExit:
		m.PartialExits.Inc()
	case events.KindOrderRejected:
		m.OrderRejects.Inc()
	}
}
