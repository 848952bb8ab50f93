package score

import (
	"fmt"
	"math"

	"github.com/crypash/crypash/internal/model"
)

// Pillar weights: financial and network carry 30% each, technology class
// and tokenomics 20% each.
const (
	weightFinancial  = 0.30
	weightNetwork    = 0.30
	weightTechnology = 0.20
	weightTokenomics = 0.20
)

// Verdict bands for the composite total.
const (
	VerdictExcellent = "excellent"
	VerdictGood      = "good"
	VerdictWatchlist = "watchlist"
)

// pillarNeutral is used when no heuristic in a pillar's chain has enough
// data; unknown is neutral, never zero.
const pillarNeutral = 50.0

// heuristic is one member of a pillar's fallback chain: it either
// produces a 0-100 score or declines for lack of data.
type heuristic struct {
	name string
	eval func(model.AssetRecord) (float64, bool)
}

// evalChain runs heuristics in declared priority order and uses the
// first one whose inputs are all known. Later members are never blended.
func evalChain(rec model.AssetRecord, chain []heuristic) (float64, string) {
	for _, h := range chain {
		if v, ok := h.eval(rec); ok {
			return clamp100(v), h.name
		}
	}
	return pillarNeutral, "insufficient data"
}

// Crypash computes the four-pillar composite assessment of a record.
func Crypash(rec model.AssetRecord) model.ScoreCard {
	card := model.ScoreCard{Symbol: rec.Symbol}

	var src string
	card.Financial, src = evalChain(rec, financialChain)
	card.Details = append(card.Details, fmt.Sprintf("financial: %s (%.0f)", src, card.Financial))

	card.Network, src = evalChain(rec, networkChain)
	card.Details = append(card.Details, fmt.Sprintf("network: %s (%.0f)", src, card.Network))

	card.Technology, src = evalChain(rec, technologyChain)
	card.Details = append(card.Details, fmt.Sprintf("technology: %s (%.0f)", src, card.Technology))

	card.Tokenomics, src = evalChain(rec, tokenomicsChain)
	card.Details = append(card.Details, fmt.Sprintf("tokenomics: %s (%.0f)", src, card.Tokenomics))

	total := weightFinancial*card.Financial +
		weightNetwork*card.Network +
		weightTechnology*card.Technology +
		weightTokenomics*card.Tokenomics
	card.Total = int(clamp100(math.Round(total)))

	switch {
	case card.Total >= 75:
		card.Verdict = VerdictExcellent
	case card.Total >= 50:
		card.Verdict = VerdictGood
	default:
		card.Verdict = VerdictWatchlist
	}
	return card
}

// Financial pillar: revenue multiple, then volume turnover, then raw
// volume size, whichever has data first.
var financialChain = []heuristic{
	{"revenue multiple", scoreRevenueMultiple},
	{"volume turnover", scoreVolumeTurnover},
	{"volume size", scoreVolumeSize},
}

// scoreRevenueMultiple treats annualized traded volume as the revenue
// proxy; cheaper multiples score higher.
func scoreRevenueMultiple(rec model.AssetRecord) (float64, bool) {
	if !rec.MarketCap.Valid || !rec.AvgVolume.Valid || rec.AvgVolume.Value <= 0 {
		return 0, false
	}
	multiple := rec.MarketCap.Value / (rec.AvgVolume.Value * 365)
	switch {
	case multiple < 1:
		return 90, true
	case multiple < 3:
		return 75, true
	case multiple < 10:
		return 60, true
	case multiple < 30:
		return 40, true
	default:
		return 20, true
	}
}

// scoreVolumeTurnover rewards daily turnover relative to market cap.
func scoreVolumeTurnover(rec model.AssetRecord) (float64, bool) {
	if !rec.MarketCap.Valid || rec.MarketCap.Value <= 0 || !rec.AvgVolume.Valid {
		return 0, false
	}
	turnover := rec.AvgVolume.Value / rec.MarketCap.Value
	// 10% daily turnover saturates the score.
	return turnover / 0.10 * 100, true
}

// scoreVolumeSize is the crude last resort: log-scale dollar volume.
func scoreVolumeSize(rec model.AssetRecord) (float64, bool) {
	if !rec.AvgVolume.Valid || rec.AvgVolume.Value <= 0 {
		return 0, false
	}
	// $1M/day -> 30, $100M/day -> 70, $10B/day -> 110 (clamped).
	return (math.Log10(rec.AvgVolume.Value) - 4.5) * 20, true
}

// Network pillar: activity premium from the volume trend, falling back
// to momentum breadth.
var networkChain = []heuristic{
	{"activity premium", scoreActivityPremium},
	{"momentum breadth", scoreMomentumBreadth},
}

func scoreActivityPremium(rec model.AssetRecord) (float64, bool) {
	if !rec.VolumeTrend.Valid || rec.VolumeTrend.Value <= 0 {
		return 0, false
	}
	// trend 1.0 = flat activity = 50; doubling activity saturates.
	return 50 + (rec.VolumeTrend.Value-1)*100, true
}

func scoreMomentumBreadth(rec model.AssetRecord) (float64, bool) {
	if !rec.Change7d.Valid || !rec.Change30d.Valid {
		return 0, false
	}
	avg := (rec.Change7d.Value + rec.Change30d.Value) / 2
	return 50 + avg, true
}

// Technology pillar: a fixed class table keyed on the narrative bucket.
var technologyChain = []heuristic{
	{"narrative class", scoreTechnologyClass},
}

var technologyClassScores = map[string]float64{
	NarrativeL1:         85,
	NarrativeAI:         80,
	NarrativeDeFi:       75,
	NarrativePayments:   70,
	NarrativeExchange:   65,
	NarrativeStablecoin: 40,
	NarrativeMeme:       25,
}

func scoreTechnologyClass(rec model.AssetRecord) (float64, bool) {
	if rec.Narrative == "" {
		return 0, false
	}
	if v, ok := technologyClassScores[rec.Narrative]; ok {
		return v, true
	}
	return pillarNeutral, true
}

// Tokenomics pillar: supply dilution first, market maturity as fallback.
var tokenomicsChain = []heuristic{
	{"supply dilution", scoreSupplyDilution},
	{"market maturity", scoreMarketMaturity},
}

// scoreSupplyDilution rewards a high issued fraction (little future
// dilution left).
func scoreSupplyDilution(rec model.AssetRecord) (float64, bool) {
	if !rec.CirculatingSupply.Valid || !rec.MaxSupply.Valid || rec.MaxSupply.Value <= 0 {
		return 0, false
	}
	issued := rec.CirculatingSupply.Value / rec.MaxSupply.Value
	if issued > 1 {
		issued = 1
	}
	return 20 + issued*75, true
}

func scoreMarketMaturity(rec model.AssetRecord) (float64, bool) {
	if !rec.MarketCap.Valid || rec.MarketCap.Value <= 0 {
		return 0, false
	}
	switch {
	case rec.MarketCap.Value >= 1e11:
		return 90, true
	case rec.MarketCap.Value >= 1e10:
		return 75, true
	case rec.MarketCap.Value >= 1e9:
		return 60, true
	case rec.MarketCap.Value >= 1e8:
		return 45, true
	default:
		return 30, true
	}
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
