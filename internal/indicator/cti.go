package indicator

// LastCTI computes the bounded correlation-trend oscillator over a trailing
// window: (close - mean) * 100 / (max - min). The sign is used directly by
// mean-reversion strategies.
func LastCTI(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	window := values[len(values)-period:]
	closeV := window[len(window)-1]

	var sum float64
	max, min := window[0], window[0]
	for _, v := range window {
		sum += v
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	mean := sum / float64(period)
	if max == min {
		return 0, true
	}
	return (closeV - mean) * 100 / (max - min), true
}
