package strategy

import "github.com/balkhaev/trader-api/internal/model"

// isBullishDivergence reports a higher low in price against a lower low in
// the MACD histogram over the last two bars.
func isBullishDivergence(candles []model.Candle, macdHist []float64) bool {
	if len(candles) < 2 || len(macdHist) < 2 {
		return false
	}
	lastPrice := candles[len(candles)-1].Close
	prevPrice := candles[len(candles)-2].Close
	lastHist := macdHist[len(macdHist)-1]
	prevHist := macdHist[len(macdHist)-2]
	return lastPrice > prevPrice && lastHist < prevHist
}

// isBullishEngulfing reports a bearish candle fully engulfed by the
// following bullish one.
func isBullishEngulfing(candles []model.Candle) bool {
	if len(candles) < 2 {
		return false
	}
	prev := candles[len(candles)-2]
	curr := candles[len(candles)-1]
	return prev.Close < prev.Open &&
		curr.Close > curr.Open &&
		curr.Close > prev.Open &&
		curr.Open < prev.Close
}

// isVolumeIncreasing reports whether the last bar traded more volume than
// the one before it.
func isVolumeIncreasing(candles []model.Candle) bool {
	if len(candles) < 2 {
		return false
	}
	return candles[len(candles)-1].Volume > candles[len(candles)-2].Volume
}

// aboveEMA reports whether the latest close sits above the mean of the last
// period closes, plus the distance to it. When fewer than period candles
// exist the mean deliberately covers only what is there, rather than keeping
// a full-period divisor that would drag it toward zero.
func aboveEMA(candles []model.Candle, period int) (bool, float64) {
	if len(candles) == 0 {
		return false, 0
	}
	n := period
	if n > len(candles) {
		n = len(candles)
	}
	var sum float64
	for _, c := range candles[len(candles)-n:] {
		sum += c.Close
	}
	mean := sum / float64(n)
	price := candles[len(candles)-1].Close
	return price > mean, price - mean
}
