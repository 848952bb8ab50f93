package indicator

import "math"

// Power-law regression constants for the distinguished BTC-equivalent
// asset, fitted on log10(price) vs log10(days since genesis).
const (
	powerLawA = -17.01
	powerLawB = 5.82
)

// PowerLawFairValue evaluates the fixed log-log regression
// price = 10^(a + b*log10(days)) for the given days-since-origin count.
// Returns 0 for non-positive day counts.
func PowerLawFairValue(days float64) float64 {
	if days <= 0 {
		return 0
	}
	return math.Pow(10, powerLawA+powerLawB*math.Log10(days))
}

// FairValueLine computes the composite fair-value series: a long-window
// moving average of price scaled by a square-root-dampened ratio of
// short-term to long-term average volume (the network-activity premium).
// Returns an empty series for empty input.
func FairValueLine(closes, volumes []float64, shortWindow, longWindow int) []float64 {
	if len(closes) == 0 {
		return nil
	}
	base := SMA(closes, longWindow)
	if len(volumes) != len(closes) {
		return base
	}
	shortVol := SMA(volumes, shortWindow)
	longVol := SMA(volumes, longWindow)

	out := make([]float64, len(closes))
	for i := range closes {
		premium := 1.0
		if longVol[i] > 0 {
			premium = math.Sqrt(shortVol[i] / longVol[i])
		}
		out[i] = base[i] * premium
	}
	return out
}

// MarginOfSafety is the percentage gap between fair value and price,
// relative to fair value. Positive means the asset trades below fair
// value. Returns 0 when fair value is non-positive.
func MarginOfSafety(fairValue, price float64) float64 {
	if fairValue <= 0 {
		return 0
	}
	return (fairValue - price) / fairValue * 100
}
