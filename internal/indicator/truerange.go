package indicator

import "math"

// trueRanges returns the true-range series; length is len(closes)-1.
func trueRanges(highs, lows, closes []float64) []float64 {
	n := min3(len(highs), len(lows), len(closes))
	if n < 2 {
		return nil
	}
	out := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		out = append(out, math.Max(hl, math.Max(hc, lc)))
	}
	return out
}

// ATR computes the Wilder-smoothed average true range. Returns 0 when the
// series is shorter than period+1 bars.
func ATR(highs, lows, closes []float64, period int) float64 {
	trs := trueRanges(highs, lows, closes)
	if period <= 0 || len(trs) < period {
		return 0
	}
	atr := 0.0
	for i := 0; i < period; i++ {
		atr += trs[i]
	}
	atr /= float64(period)
	for i := period; i < len(trs); i++ {
		atr = (atr*float64(period-1) + trs[i]) / float64(period)
	}
	return atr
}

// ADX computes the average directional index. Directional movement
// contributions are clipped to non-negative before smoothing. Returns 0
// (no trend signal) for series shorter than 2*period+1 bars.
func ADX(highs, lows, closes []float64, period int) float64 {
	n := min3(len(highs), len(lows), len(closes))
	if period <= 0 || n < 2*period+1 {
		return 0
	}

	trs := trueRanges(highs, lows, closes)
	plusDM := make([]float64, len(trs))
	minusDM := make([]float64, len(trs))
	for i := 1; i < n; i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plusDM[i-1] = up
		}
		if down > up && down > 0 {
			minusDM[i-1] = down
		}
	}

	smTR := wilderSum(trs, period)
	smPlus := wilderSum(plusDM, period)
	smMinus := wilderSum(minusDM, period)

	dxs := make([]float64, 0, len(smTR))
	for i := range smTR {
		if smTR[i] == 0 {
			dxs = append(dxs, 0)
			continue
		}
		plusDI := 100 * smPlus[i] / smTR[i]
		minusDI := 100 * smMinus[i] / smTR[i]
		sum := plusDI + minusDI
		if sum == 0 {
			dxs = append(dxs, 0)
			continue
		}
		dxs = append(dxs, 100*math.Abs(plusDI-minusDI)/sum)
	}
	if len(dxs) < period {
		return 0
	}

	adx := 0.0
	for i := 0; i < period; i++ {
		adx += dxs[i]
	}
	adx /= float64(period)
	for i := period; i < len(dxs); i++ {
		adx = (adx*float64(period-1) + dxs[i]) / float64(period)
	}
	return adx
}

// wilderSum produces the Wilder running-smoothed series starting once the
// first period has filled.
func wilderSum(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}
	out := make([]float64, 0, len(values)-period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	out = append(out, sum)
	for i := period; i < len(values); i++ {
		sum = sum - sum/float64(period) + values[i]
		out = append(out, sum)
	}
	return out
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
