package model

import "time"

// Bar is one OHLCV observation.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is the daily history for one symbol as returned by the market
// data gateway. Bars are ordered oldest first.
type Series struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

func (s Series) Len() int { return len(s.Bars) }

func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

func (s Series) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

func (s Series) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

func (s Series) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}

// LastClose returns the most recent close, or 0 for an empty series.
func (s Series) LastClose() float64 {
	if len(s.Bars) == 0 {
		return 0
	}
	return s.Bars[len(s.Bars)-1].Close
}

// PctChange returns the percentage change over the trailing n bars, or
// Unknown when the series is too short.
func (s Series) PctChange(n int) Float {
	if len(s.Bars) <= n {
		return Unknown()
	}
	prev := s.Bars[len(s.Bars)-1-n].Close
	if prev == 0 {
		return Unknown()
	}
	return Known((s.LastClose() - prev) / prev * 100)
}

// DailyReturns returns simple percentage returns between consecutive
// closes. Bars with a zero previous close are skipped.
func (s Series) DailyReturns() []float64 {
	if len(s.Bars) < 2 {
		return nil
	}
	out := make([]float64, 0, len(s.Bars)-1)
	for i := 1; i < len(s.Bars); i++ {
		prev := s.Bars[i-1].Close
		if prev == 0 {
			continue
		}
		out = append(out, (s.Bars[i].Close-prev)/prev)
	}
	return out
}
