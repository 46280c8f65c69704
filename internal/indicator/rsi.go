package indicator

// RSI computes the Wilder-smoothed relative strength index series.
// The first value corresponds to values[period]; needs period+1 inputs.
func RSI(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period+1 {
		return nil
	}
	out := make([]float64, 0, len(values)-period)

	var gain, loss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}
	gain /= float64(period)
	loss /= float64(period)
	out = append(out, rsiValue(gain, loss))

	n := float64(period)
	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gain = (gain*(n-1) + change) / n
			loss = (loss * (n - 1)) / n
		} else {
			gain = (gain * (n - 1)) / n
			loss = (loss*(n-1) - change) / n
		}
		out = append(out, rsiValue(gain, loss))
	}
	return out
}

func rsiValue(gain, loss float64) float64 {
	if loss == 0 {
		return 100
	}
	rs := gain / loss
	return 100 - (100 / (1 + rs))
}

// LastRSI returns the most recent RSI value.
func LastRSI(values []float64, period int) (float64, bool) {
	return last(RSI(values, period))
}
