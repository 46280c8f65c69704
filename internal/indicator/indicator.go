// Package indicator provides technical indicator calculations over candle data.
//
// All functions are pure and deterministic. Series functions return a slice
// aligned to the tail of the input; Last* helpers return (value, ok) where
// ok=false means the backing series is shorter than the indicator's window.
// Callers must treat ok=false as "insufficient data", never as an error.
package indicator

// last returns the final element of a series, or (0, false) when empty.
func last(series []float64) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1], true
}

// fp boxes a float for an optional snapshot field.
func fp(v float64) *float64 { return &v }
