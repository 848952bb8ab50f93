package indicator

// EMA computes an exponential moving average with smoothing 2/(period+1).
// The EMA is defined from the first sample, so short input needs no
// special-casing; an empty input yields an empty output.
func EMA(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}
	out := make([]float64, len(values))
	alpha := 2.0 / (float64(period) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// SMA computes a simple moving average; positions before the window fills
// average over whatever is available so the output length matches input.
func SMA(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		n := period
		if i+1 < period {
			n = i + 1
		} else if i >= period {
			sum -= values[i-period]
		}
		out[i] = sum / float64(n)
	}
	return out
}

// MACDResult holds the MACD line, signal line and histogram.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes the classic EMA(fast)-EMA(slow) difference with a signal
// EMA over the MACD line.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	if len(closes) == 0 {
		return MACDResult{}
	}
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	sig := EMA(macd, signal)
	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = macd[i] - sig[i]
	}
	return MACDResult{MACD: macd, Signal: sig, Histogram: hist}
}
