package strategy

import "github.com/balkhaev/trader-api/internal/model"

// Crossing is the unanimity consensus rule: the common value is returned
// only when every signal in the list agrees; any dissent yields neutral.
// A single disagreeing timeframe intentionally vetoes the trade — this
// favors precision over recall and must not be relaxed to a majority vote.
func Crossing(signals []model.Signal) model.Signal {
	if len(signals) == 0 {
		return model.SignalNeutral
	}
	first := signals[0]
	for _, s := range signals[1:] {
		if s != first {
			return model.SignalNeutral
		}
	}
	return first
}

// Reverse flips a directional signal: 1 <-> -1, neutral unaffected.
// Used to invert a short-horizon Supertrend for short-biased entries.
func Reverse(s model.Signal) model.Signal {
	switch s {
	case model.SignalBuy:
		return model.SignalSell
	case model.SignalSell:
		return model.SignalBuy
	default:
		return model.SignalNeutral
	}
}
