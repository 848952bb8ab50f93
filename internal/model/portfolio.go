package model

import "github.com/shopspring/decimal"

// RiskProfile selects the optimizer objective.
type RiskProfile string

const (
	RiskConservative RiskProfile = "conservative"
	RiskBalanced     RiskProfile = "balanced"
	RiskAggressive   RiskProfile = "aggressive"
)

// Tier labels for the selection buckets.
const (
	TierFoundation = "foundation"
	TierGrowth     = "growth"
	TierAlpha      = "alpha"
)

// Allocation method markers.
const (
	MethodMeanVariance = "mean_variance"
	MethodEqualWeight  = "equal_weight"
)

// PortfolioAllocation maps symbols to target weights. Weights sum to 1.0
// within floating-point tolerance and respect the configured bounds.
// Immutable once returned.
type PortfolioAllocation struct {
	Weights map[string]float64 `json:"weights"`
	Tiers   map[string]string  `json:"tiers"`
	Method  string             `json:"method"`

	// Amounts is Weights multiplied by the requested capital; empty when
	// no capital was supplied.
	Amounts map[string]decimal.Decimal `json:"amounts,omitempty"`
}

// WithAmounts returns a copy carrying currency amounts for the given
// capital. Decimal arithmetic keeps the cents exact.
func (a PortfolioAllocation) WithAmounts(capital float64) PortfolioAllocation {
	out := a
	out.Amounts = make(map[string]decimal.Decimal, len(a.Weights))
	total := decimal.NewFromFloat(capital)
	for sym, w := range a.Weights {
		out.Amounts[sym] = total.Mul(decimal.NewFromFloat(w)).Round(2)
	}
	return out
}
