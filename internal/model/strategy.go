package model

// Comparison is the direction of a strategy threshold.
type Comparison string

const (
	Below Comparison = "<"
	Above Comparison = ">"
)

// Target is one threshold check: a single upper or lower bound per metric.
type Target struct {
	Metric     string     `json:"metric" yaml:"metric"`
	Bound      float64    `json:"bound" yaml:"bound"`
	Comparison Comparison `json:"comparison" yaml:"comparison"`
}

// Satisfied reports whether v meets the bound.
func (t Target) Satisfied(v float64) bool {
	if t.Comparison == Below {
		return v <= t.Bound
	}
	return v >= t.Bound
}

// MissPct is the signed percentage by which v misses the bound; positive
// means the bound was missed, negative means it was cleared with room.
func (t Target) MissPct(v float64) float64 {
	if t.Bound == 0 {
		if t.Satisfied(v) {
			return 0
		}
		return 100
	}
	if t.Comparison == Below {
		return (v - t.Bound) / abs(t.Bound) * 100
	}
	return (t.Bound - v) / abs(t.Bound) * 100
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// StrategyProfile is a named preset of threshold targets. A profile with
// no override for a metric inherits the system default target.
type StrategyProfile struct {
	Name    string   `json:"name" yaml:"name"`
	Targets []Target `json:"targets" yaml:"targets"`
}

// Merged returns the profile's targets with defaults filled in for any
// metric the profile does not override.
func (p StrategyProfile) Merged(defaults []Target) []Target {
	seen := make(map[string]bool, len(p.Targets))
	out := make([]Target, 0, len(p.Targets)+len(defaults))
	for _, t := range p.Targets {
		seen[t.Metric] = true
		out = append(out, t)
	}
	for _, t := range defaults {
		if !seen[t.Metric] {
			out = append(out, t)
		}
	}
	return out
}
