package indicator

// LastOBV computes the final on-balance volume value: cumulative volume
// signed by close-to-close direction.
func LastOBV(closes, volumes []float64) (float64, bool) {
	if len(closes) < 2 || len(volumes) != len(closes) {
		return 0, false
	}
	var obv float64
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			obv += volumes[i]
		case closes[i] < closes[i-1]:
			obv -= volumes[i]
		}
	}
	return obv, true
}
