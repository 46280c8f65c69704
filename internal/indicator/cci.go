package indicator

import "math"

// LastCCI computes the commodity channel index over typical prices:
// (TP - SMA(TP)) / (0.015 * mean deviation).
func LastCCI(highs, lows, closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period || len(highs) != len(closes) || len(lows) != len(closes) {
		return 0, false
	}
	tp := make([]float64, period)
	var sum float64
	for i := 0; i < period; i++ {
		idx := len(closes) - period + i
		tp[i] = (highs[idx] + lows[idx] + closes[idx]) / 3
		sum += tp[i]
	}
	mean := sum / float64(period)

	var dev float64
	for _, v := range tp {
		dev += math.Abs(v - mean)
	}
	dev /= float64(period)
	if dev == 0 {
		return 0, true
	}
	return (tp[period-1] - mean) / (0.015 * dev), true
}
