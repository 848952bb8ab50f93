package model

import (
	"encoding/json"
	"math"
)

// Float is a metric value that may be unknown. Indicators that need more
// history than a series provides report Unknown rather than a fabricated
// number; scoring treats Unknown as a neutral default, never as zero.
type Float struct {
	Value float64
	Valid bool
}

// Known wraps a computed value. NaN and Inf collapse to Unknown so that
// downstream math never sees them.
func Known(v float64) Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Float{}
	}
	return Float{Value: v, Valid: true}
}

// Unknown is the explicit "not computable" marker.
func Unknown() Float {
	return Float{}
}

// Or returns the value, or def when unknown.
func (f Float) Or(def float64) float64 {
	if !f.Valid {
		return def
	}
	return f.Value
}

func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

func (f *Float) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = Float{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Known(v)
	return nil
}
