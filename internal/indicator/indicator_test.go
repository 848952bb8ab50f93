package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestRSI_ShortInputReturnsNeutral(t *testing.T) {
	assert.Equal(t, 50.0, RSI(nil, 14))
	assert.Equal(t, 50.0, RSI(linear(10, 100, 1), 14))
	assert.Equal(t, 50.0, RSI(linear(14, 100, 1), 14)) // needs period+1
}

func TestRSI_ZeroLossFailsClosedToNeutral(t *testing.T) {
	// Monotonic rise has zero average loss; must fail closed to 50, not
	// divide by zero or peg at 100.
	rsi := RSI(linear(30, 100, 1), 14)
	assert.Equal(t, 50.0, rsi)
	assert.False(t, math.IsNaN(rsi))
}

func TestRSI_MixedSeriesWithGainsDominant(t *testing.T) {
	// One loss in an otherwise rising window keeps the ratio defined and
	// the reading strongly overbought.
	closes := linear(30, 100, 1)
	closes[20] = closes[19] - 0.5
	rsi := RSI(closes, 14)
	assert.Greater(t, rsi, 70.0)
	assert.Less(t, rsi, 100.0)
}

func TestRSI_AllLossesIsLow(t *testing.T) {
	rsi := RSI(linear(30, 100, -1), 14)
	assert.InDelta(t, 0.0, rsi, 1e-9)
}

func TestStochRSI_ShortInputReturnsNeutral(t *testing.T) {
	assert.Equal(t, 50.0, StochRSI(linear(10, 100, 1), 14, 14))
}

func TestMACD_LengthsMatchAndEmptyInput(t *testing.T) {
	res := MACD(nil, 12, 26, 9)
	assert.Empty(t, res.MACD)

	closes := linear(50, 100, 0.5)
	res = MACD(closes, 12, 26, 9)
	require.Len(t, res.MACD, 50)
	require.Len(t, res.Signal, 50)
	require.Len(t, res.Histogram, 50)
	// Rising series: fast EMA leads slow, MACD ends positive.
	assert.Greater(t, res.MACD[49], 0.0)
}

func TestATR_ShortInputReturnsZero(t *testing.T) {
	assert.Equal(t, 0.0, ATR(linear(5, 10, 1), linear(5, 9, 1), linear(5, 9.5, 1), 14))
}

func TestATR_ConstantRange(t *testing.T) {
	n := 40
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i] = 102
		lows[i] = 100
		closes[i] = 101
	}
	assert.InDelta(t, 2.0, ATR(highs, lows, closes, 14), 1e-9)
}

func TestADX_ShortInputReturnsZero(t *testing.T) {
	assert.Equal(t, 0.0, ADX(linear(10, 10, 1), linear(10, 9, 1), linear(10, 9.5, 1), 14))
}

func TestADX_StrongTrendIsHigh(t *testing.T) {
	n := 80
	highs := linear(n, 101, 1)
	lows := linear(n, 99, 1)
	closes := linear(n, 100, 1)
	adx := ADX(highs, lows, closes, 14)
	assert.Greater(t, adx, 25.0)
	assert.LessOrEqual(t, adx, 100.0)
}

func TestZScore_ShortWindowIsNeutral(t *testing.T) {
	assert.Equal(t, 0.0, ZScore(linear(100, 50, 1), 200))
}

func TestZScore_FlatSeriesIsNeutral(t *testing.T) {
	flat := make([]float64, 200)
	for i := range flat {
		flat[i] = 42
	}
	assert.Equal(t, 0.0, ZScore(flat, 200))
}

func TestZScore_AboveMeanIsPositive(t *testing.T) {
	closes := linear(200, 100, 1)
	z := ZScore(closes, 200)
	assert.Greater(t, z, 0.0)
	assert.False(t, math.IsNaN(z))
}

func TestAnnualizedVolatility_ShortInput(t *testing.T) {
	assert.Equal(t, 0.0, AnnualizedVolatility([]float64{0.01}, 30))
}

func TestCCI_ShortInputReturnsZero(t *testing.T) {
	assert.Equal(t, 0.0, CCI(linear(5, 10, 1), linear(5, 9, 1), linear(5, 9.5, 1), 20))
}

func TestPowerLawFairValue(t *testing.T) {
	assert.Equal(t, 0.0, PowerLawFairValue(0))
	assert.Equal(t, 0.0, PowerLawFairValue(-10))
	// Fair value grows with days-since-origin.
	assert.Greater(t, PowerLawFairValue(5000), PowerLawFairValue(2000))
}

func TestFairValueLine_EmptyInput(t *testing.T) {
	assert.Empty(t, FairValueLine(nil, nil, 30, 200))
}

func TestFairValueLine_VolumePremium(t *testing.T) {
	n := 250
	closes := make([]float64, n)
	volFlat := make([]float64, n)
	volRising := make([]float64, n)
	for i := 0; i < n; i++ {
		closes[i] = 100
		volFlat[i] = 1000
		volRising[i] = 1000
		if i >= n-30 {
			volRising[i] = 4000 // recent activity spike
		}
	}
	flat := FairValueLine(closes, volFlat, 30, 200)
	risen := FairValueLine(closes, volRising, 30, 200)
	require.Len(t, flat, n)
	// Flat volume: short and long averages agree, premium is 1.
	assert.InDelta(t, 100.0, flat[n-1], 1e-9)
	// Activity spike raises the line, sqrt-dampened below the raw ratio.
	assert.Greater(t, risen[n-1], flat[n-1])
	assert.Less(t, risen[n-1], 100.0*4.0)
}

func TestMarginOfSafety(t *testing.T) {
	assert.Equal(t, 0.0, MarginOfSafety(0, 100))
	assert.InDelta(t, 50.0, MarginOfSafety(200, 100), 1e-9)
	assert.InDelta(t, -100.0, MarginOfSafety(100, 200), 1e-9)
}

func TestSMA_PartialWindow(t *testing.T) {
	out := SMA([]float64{2, 4, 6, 8}, 2)
	require.Len(t, out, 4)
	assert.Equal(t, 2.0, out[0])
	assert.Equal(t, 3.0, out[1])
	assert.Equal(t, 5.0, out[2])
	assert.Equal(t, 7.0, out[3])
}
