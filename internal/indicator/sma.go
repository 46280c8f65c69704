package indicator

// SMA computes the simple moving average series. The result has
// len(values)-period+1 entries; nil if the series is too short.
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	out := make([]float64, 0, len(values)-period+1)
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

// LastSMA returns the most recent SMA value.
func LastSMA(values []float64, period int) (float64, bool) {
	return last(SMA(values, period))
}
