package strategy

import (
	"fmt"

	"github.com/balkhaev/trader-api/internal/indicator"
	"github.com/balkhaev/trader-api/internal/model"
)

// SupertrendSignal derives a directional signal for one timeframe by
// comparing lastPrice to the latest Supertrend line value: above => 1,
// below => -1. It additionally walks the historical trend series once to
// detect a fresh breakout (price was strictly below the line earlier in the
// window and has crossed above it), reported via NewTrend — this separates a
// new uptrend from a price that sat above trend for the whole window.
func SupertrendSignal(lastPrice float64, candles []model.Candle, period int, multiplier float64) model.MetaSignal {
	if len(candles) < period {
		return model.Neutral(
			fmt.Sprintf("Need more candles (period %d)", period),
			model.Number(float64(len(candles))),
		)
	}

	st := indicator.Supertrend(candles, period, multiplier)
	lastTrend := st[len(st)-1]

	wasBelow := false
	crossedUp := false
	offset := len(candles) - len(st)
	for i := 0; i < len(st)-1; i++ {
		closePrice := candles[i+offset].Close
		if closePrice < st[i] {
			wasBelow = true
		}
		if wasBelow && closePrice > st[i+1] {
			crossedUp = true
			break
		}
	}

	var sig model.Signal
	switch {
	case lastPrice > lastTrend:
		sig = model.SignalBuy
	case lastPrice < lastTrend:
		sig = model.SignalSell
	}

	return model.MetaSignal{
		Signal: sig,
		Diagnostics: []model.Diagnostic{
			{Name: fmt.Sprintf("Was below (%d, %g)", period, multiplier), Data: model.Bool(wasBelow)},
			{Name: fmt.Sprintf("Crossed up (%d, %g)", period, multiplier), Data: model.Bool(crossedUp)},
		},
		NewTrend: wasBelow || crossedUp,
	}
}
