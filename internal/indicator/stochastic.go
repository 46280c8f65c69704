package indicator

// FastK computes the raw stochastic %K series over high/low/close:
// 100 * (close - lowestLow) / (highestHigh - lowestLow).
func FastK(highs, lows, closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period || len(highs) != len(closes) || len(lows) != len(closes) {
		return nil
	}
	out := make([]float64, 0, len(closes)-period+1)
	for i := period - 1; i < len(closes); i++ {
		hi, lo := highs[i], lows[i]
		for j := i - period + 1; j <= i; j++ {
			if highs[j] > hi {
				hi = highs[j]
			}
			if lows[j] < lo {
				lo = lows[j]
			}
		}
		if hi == lo {
			out = append(out, 50)
			continue
		}
		out = append(out, 100*(closes[i]-lo)/(hi-lo))
	}
	return out
}

// LastFastK returns the most recent raw %K value.
func LastFastK(highs, lows, closes []float64, period int) (float64, bool) {
	return last(FastK(highs, lows, closes, period))
}

// StochRSIResult is one Stochastic RSI value: the raw oscillator plus its
// smoothed %K and %D lines.
type StochRSIResult struct {
	StochRSI float64 `json:"stoch_rsi"`
	K        float64 `json:"k"`
	D        float64 `json:"d"`
}

// LastStochRSI computes RSI-of-RSI normalized 0-100, with kPeriod/dPeriod
// SMA smoothing for the %K and %D lines.
func LastStochRSI(values []float64, rsiPeriod, stochPeriod, kPeriod, dPeriod int) (StochRSIResult, bool) {
	rsi := RSI(values, rsiPeriod)
	if len(rsi) < stochPeriod {
		return StochRSIResult{}, false
	}

	raw := make([]float64, 0, len(rsi)-stochPeriod+1)
	for i := stochPeriod - 1; i < len(rsi); i++ {
		hi, lo := rsi[i], rsi[i]
		for j := i - stochPeriod + 1; j <= i; j++ {
			if rsi[j] > hi {
				hi = rsi[j]
			}
			if rsi[j] < lo {
				lo = rsi[j]
			}
		}
		if hi == lo {
			raw = append(raw, 0)
			continue
		}
		raw = append(raw, 100*(rsi[i]-lo)/(hi-lo))
	}

	k := SMA(raw, kPeriod)
	d := SMA(k, dPeriod)
	if len(d) == 0 {
		return StochRSIResult{}, false
	}
	return StochRSIResult{
		StochRSI: raw[len(raw)-1],
		K:        k[len(k)-1],
		D:        d[len(d)-1],
	}, true
}
