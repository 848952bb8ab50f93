package indicator

// RSI computes the Wilder-smoothed relative strength index over the given
// period. Needs at least period+1 closes. Fails closed to the neutral 50
// when the series is too short or the loss average is zero: a no-loss
// window says nothing usable about relative strength.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50.0
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 50.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// RSISeries computes the RSI at every bar, carrying the neutral 50 until
// enough history has accumulated.
func RSISeries(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		out[i] = RSI(closes[:i+1], period)
	}
	return out
}

// StochRSI maps the current RSI into its own trailing min/max range over
// the window, scaled 0-100. Returns the neutral 50 when the range is
// degenerate or history is short.
func StochRSI(closes []float64, period, window int) float64 {
	if window <= 0 || len(closes) < period+window {
		return 50.0
	}
	rsis := RSISeries(closes, period)
	tail := rsis[len(rsis)-window:]
	lo, hi := tail[0], tail[0]
	for _, v := range tail {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return 50.0
	}
	return (tail[len(tail)-1] - lo) / (hi - lo) * 100.0
}
