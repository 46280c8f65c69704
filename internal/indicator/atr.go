package indicator

import "math"

// TrueRange computes the true range series. The first element uses
// high-low only; the rest take the previous close into account.
func TrueRange(highs, lows, closes []float64) []float64 {
	if len(closes) == 0 || len(highs) != len(closes) || len(lows) != len(closes) {
		return nil
	}
	out := make([]float64, len(closes))
	out[0] = highs[0] - lows[0]
	for i := 1; i < len(closes); i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR computes the Wilder-smoothed average true range series.
// The first value corresponds to bar index period-1.
func ATR(highs, lows, closes []float64, period int) []float64 {
	tr := TrueRange(highs, lows, closes)
	if period <= 0 || len(tr) < period {
		return nil
	}
	out := make([]float64, 0, len(tr)-period+1)
	var sum float64
	for i := 0; i < period; i++ {
		sum += tr[i]
	}
	atr := sum / float64(period)
	out = append(out, atr)

	n := float64(period)
	for i := period; i < len(tr); i++ {
		atr = (atr*(n-1) + tr[i]) / n
		out = append(out, atr)
	}
	return out
}

// LastATR returns the most recent ATR value.
func LastATR(highs, lows, closes []float64, period int) (float64, bool) {
	return last(ATR(highs, lows, closes, period))
}
