package indicator

import "github.com/balkhaev/trader-api/internal/model"

// Supertrend computes the ATR-band trend line series:
//
//	upperBand = (high+low)/2 + multiplier*ATR
//	lowerBand = (high+low)/2 - multiplier*ATR
//
// The line tracks the lower band during an uptrend and the upper band during
// a downtrend, flipping direction when price closes across the opposite band.
// The result covers bars period-1..n-1; nil if the series is too short.
func Supertrend(candles []model.Candle, period int, multiplier float64) []float64 {
	highs := model.Highs(candles)
	lows := model.Lows(candles)
	closes := model.Closes(candles)

	atr := ATR(highs, lows, closes, period)
	if atr == nil {
		return nil
	}

	out := make([]float64, len(atr))
	var finalUpper, finalLower float64
	uptrend := true

	for k := range atr {
		i := k + period - 1
		mid := (highs[i] + lows[i]) / 2
		basicUpper := mid + multiplier*atr[k]
		basicLower := mid - multiplier*atr[k]

		if k == 0 {
			finalUpper = basicUpper
			finalLower = basicLower
			uptrend = closes[i] > mid
		} else {
			if basicUpper < finalUpper || closes[i-1] > finalUpper {
				finalUpper = basicUpper
			}
			if basicLower > finalLower || closes[i-1] < finalLower {
				finalLower = basicLower
			}
			if uptrend && closes[i] < finalLower {
				uptrend = false
				finalUpper = basicUpper
			} else if !uptrend && closes[i] > finalUpper {
				uptrend = true
				finalLower = basicLower
			}
		}

		if uptrend {
			out[k] = finalLower
		} else {
			out[k] = finalUpper
		}
	}
	return out
}
