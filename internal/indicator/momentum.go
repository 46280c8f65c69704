package indicator

// LastMomentum returns close[t] - close[t-period].
func LastMomentum(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period+1 {
		return 0, false
	}
	return values[len(values)-1] - values[len(values)-1-period], true
}
