package indicator

// MACDResult holds one MACD bar: line, signal line, and histogram.
// Signal and Histogram are absent until enough MACD values exist to seed
// the signal EMA.
type MACDResult struct {
	MACD      float64  `json:"macd"`
	Signal    *float64 `json:"signal,omitempty"`
	Histogram *float64 `json:"histogram,omitempty"`
}

// MACD computes the moving average convergence/divergence series using
// exponential averages for both the oscillator and the signal line.
func MACD(values []float64, fastPeriod, slowPeriod, signalPeriod int) []MACDResult {
	fast := EMA(values, fastPeriod)
	slow := EMA(values, slowPeriod)
	if fast == nil || slow == nil {
		return nil
	}

	// Align the fast series to the slow one; both end at the last input.
	offset := len(fast) - len(slow)
	line := make([]float64, len(slow))
	for i := range slow {
		line[i] = fast[i+offset] - slow[i]
	}

	out := make([]MACDResult, len(line))
	for i, m := range line {
		out[i] = MACDResult{MACD: m}
	}

	signal := EMA(line, signalPeriod)
	sigOffset := len(line) - len(signal)
	for i, s := range signal {
		idx := i + sigOffset
		sv := s
		hv := line[idx] - s
		out[idx].Signal = &sv
		out[idx].Histogram = &hv
	}
	return out
}

// MACDHistogram extracts the histogram series, skipping bars where the
// signal line is not yet seeded.
func MACDHistogram(values []float64, fastPeriod, slowPeriod, signalPeriod int) []float64 {
	res := MACD(values, fastPeriod, slowPeriod, signalPeriod)
	out := make([]float64, 0, len(res))
	for _, r := range res {
		if r.Histogram != nil {
			out = append(out, *r.Histogram)
		}
	}
	return out
}

// LastMACD returns the most recent MACD bar.
func LastMACD(values []float64, fastPeriod, slowPeriod, signalPeriod int) (MACDResult, bool) {
	res := MACD(values, fastPeriod, slowPeriod, signalPeriod)
	if len(res) == 0 {
		return MACDResult{}, false
	}
	return res[len(res)-1], true
}
