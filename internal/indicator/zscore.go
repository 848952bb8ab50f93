package indicator

import "math"

// ZScore computes (last - rolling mean) / rolling std over the trailing
// window. Undefined (0, "neutral") until the window is fully populated or
// when the window has no variance. Serves as the MVRV-Z proxy when true
// realized-cost data is unavailable.
func ZScore(closes []float64, window int) float64 {
	if window <= 0 || len(closes) < window {
		return 0
	}
	tail := closes[len(closes)-window:]
	mean := 0.0
	for _, v := range tail {
		mean += v
	}
	mean /= float64(window)

	variance := 0.0
	for _, v := range tail {
		d := v - mean
		variance += d * d
	}
	variance /= float64(window)
	if variance == 0 {
		return 0
	}
	return (tail[len(tail)-1] - mean) / math.Sqrt(variance)
}

// AnnualizedVolatility computes stdev of daily returns over the trailing
// window, annualized with sqrt(365). Returns 0 on short input.
func AnnualizedVolatility(returns []float64, window int) float64 {
	if window <= 1 || len(returns) < window {
		return 0
	}
	tail := returns[len(returns)-window:]
	mean := 0.0
	for _, r := range tail {
		mean += r
	}
	mean /= float64(window)
	variance := 0.0
	for _, r := range tail {
		d := r - mean
		variance += d * d
	}
	variance /= float64(window - 1)
	return math.Sqrt(variance) * math.Sqrt(365)
}

// CCI computes the commodity channel index over the period using typical
// prices. Returns the neutral 0 on short input or zero mean deviation.
func CCI(highs, lows, closes []float64, period int) float64 {
	n := min3(len(highs), len(lows), len(closes))
	if period <= 0 || n < period {
		return 0
	}
	tp := make([]float64, n)
	for i := 0; i < n; i++ {
		tp[i] = (highs[i] + lows[i] + closes[i]) / 3
	}
	tail := tp[n-period:]
	mean := 0.0
	for _, v := range tail {
		mean += v
	}
	mean /= float64(period)
	meanDev := 0.0
	for _, v := range tail {
		meanDev += math.Abs(v - mean)
	}
	meanDev /= float64(period)
	if meanDev == 0 {
		return 0
	}
	return (tail[period-1] - mean) / (0.015 * meanDev)
}
