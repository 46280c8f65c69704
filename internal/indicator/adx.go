package indicator

import "math"

// ADXResult is one average directional index value with its directional
// indicator components.
type ADXResult struct {
	ADX float64 `json:"adx"`
	PDI float64 `json:"pdi"`
	MDI float64 `json:"mdi"`
}

// LastADX computes the Wilder ADX with +DI/-DI. Needs 2*period bars.
func LastADX(highs, lows, closes []float64, period int) (ADXResult, bool) {
	if period <= 0 || len(closes) < 2*period || len(highs) != len(closes) || len(lows) != len(closes) {
		return ADXResult{}, false
	}

	tr := TrueRange(highs, lows, closes)
	plusDM := make([]float64, len(closes))
	minusDM := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	// Wilder smoothing of TR and the directional movements.
	var smTR, smPlus, smMinus float64
	for i := 1; i <= period; i++ {
		smTR += tr[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	n := float64(period)
	var pdi, mdi, adx float64
	dxCount := 0
	for i := period + 1; i <= len(closes); i++ {
		if smTR > 0 {
			pdi = 100 * smPlus / smTR
			mdi = 100 * smMinus / smTR
		}
		dx := 0.0
		if pdi+mdi > 0 {
			dx = 100 * math.Abs(pdi-mdi) / (pdi + mdi)
		}
		if dxCount < period {
			adx += dx
			dxCount++
			if dxCount == period {
				adx /= n
			}
		} else {
			adx = (adx*(n-1) + dx) / n
		}
		if i == len(closes) {
			break
		}
		smTR = smTR - smTR/n + tr[i]
		smPlus = smPlus - smPlus/n + plusDM[i]
		smMinus = smMinus - smMinus/n + minusDM[i]
	}

	return ADXResult{ADX: adx, PDI: pdi, MDI: mdi}, true
}
