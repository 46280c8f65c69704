package indicator

// EMA computes the exponential moving average series, seeded with the SMA of
// the first period values. The result has len(values)-period+1 entries.
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	out := make([]float64, 0, len(values)-period+1)
	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	ema := seed / float64(period)
	out = append(out, ema)

	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*k + ema
		out = append(out, ema)
	}
	return out
}

// LastEMA returns the most recent EMA value.
func LastEMA(values []float64, period int) (float64, bool) {
	return last(EMA(values, period))
}
