package indicator

import "math"

// BollingerResult is one Bollinger Bands value.
type BollingerResult struct {
	Middle float64 `json:"middle"`
	Upper  float64 `json:"upper"`
	Lower  float64 `json:"lower"`
}

// LastBollinger returns the most recent Bollinger Bands value: an SMA middle
// band with upper/lower bands stdDev standard deviations away.
func LastBollinger(values []float64, period int, stdDev float64) (BollingerResult, bool) {
	if period <= 0 || len(values) < period {
		return BollingerResult{}, false
	}
	window := values[len(values)-period:]
	var sum float64
	for _, v := range window {
		sum += v
	}
	mean := sum / float64(period)

	var variance float64
	for _, v := range window {
		d := v - mean
		variance += d * d
	}
	sigma := math.Sqrt(variance / float64(period))

	return BollingerResult{
		Middle: mean,
		Upper:  mean + stdDev*sigma,
		Lower:  mean - stdDev*sigma,
	}, true
}
