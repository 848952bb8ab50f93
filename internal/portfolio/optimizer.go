package portfolio

import (
	"math"

	"github.com/crypash/crypash/internal/model"
)

// AssetCount maps investable capital to a portfolio size. A policy
// table, not a formula; the bands are the customization point.
func AssetCount(capital float64) int {
	switch {
	case capital < 10_000:
		return 6
	case capital < 100_000:
		return 10
	default:
		return 15
	}
}

// Candidate is one ranked asset offered to the selector.
type Candidate struct {
	Symbol   string
	Quality  float64 // composite rank score
	Momentum float64 // 30d change or RSI-derived momentum
}

// Selection is a candidate with its assigned tier.
type Selection struct {
	Symbol string
	Tier   string
}

// foundationAllowList is the fixed blue-chip set eligible for the
// foundation tier.
var foundationAllowList = map[string]bool{
	"BTC-USD": true,
	"ETH-USD": true,
	"SOL-USD": true,
	"BNB-USD": true,
	"XRP-USD": true,
	"ADA-USD": true,
}

// Tier share of the target count: 30% foundation, 50% growth, 20% alpha,
// with per-tier floors.
func tierSizes(targetN int) (foundation, growth, alpha int) {
	foundation = maxInt(2, int(math.Round(0.3*float64(targetN))))
	growth = maxInt(3, int(math.Round(0.5*float64(targetN))))
	alpha = maxInt(2, int(math.Round(0.2*float64(targetN))))
	return
}

// SelectUniverse partitions ranked candidates into foundation, growth
// and alpha tiers. First assignment wins on duplicates; the union is
// truncated to targetN. Fewer available candidates than targetN is a
// valid under-filled result, not an error.
func SelectUniverse(candidates []Candidate, targetN int) []Selection {
	if targetN <= 0 || len(candidates) == 0 {
		return nil
	}
	nFoundation, nGrowth, nAlpha := tierSizes(targetN)

	taken := make(map[string]bool, targetN)
	var out []Selection
	take := func(c Candidate, tier string) {
		if taken[c.Symbol] {
			return
		}
		taken[c.Symbol] = true
		out = append(out, Selection{Symbol: c.Symbol, Tier: tier})
	}

	// Foundation: allow-listed names, best quality first. Candidates
	// arrive ranked by quality, so order is preserved by filtering.
	byQuality := sortedBy(candidates, func(a, b Candidate) bool { return a.Quality > b.Quality })
	count := 0
	for _, c := range byQuality {
		if count >= nFoundation {
			break
		}
		if foundationAllowList[c.Symbol] {
			take(c, model.TierFoundation)
			count++
		}
	}

	// Growth: top remaining by quality.
	count = 0
	for _, c := range byQuality {
		if count >= nGrowth {
			break
		}
		if !taken[c.Symbol] {
			take(c, model.TierGrowth)
			count++
		}
	}

	// Alpha: top remaining by momentum.
	byMomentum := sortedBy(candidates, func(a, b Candidate) bool { return a.Momentum > b.Momentum })
	count = 0
	for _, c := range byMomentum {
		if count >= nAlpha {
			break
		}
		if !taken[c.Symbol] {
			take(c, model.TierAlpha)
			count++
		}
	}

	if len(out) > targetN {
		out = out[:targetN]
	}
	return out
}

func sortedBy(in []Candidate, less func(a, b Candidate) bool) []Candidate {
	out := make([]Candidate, len(in))
	copy(out, in)
	// insertion sort keeps this dependency-free and stable
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
