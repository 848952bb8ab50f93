package score

import (
	"strings"

	"github.com/crypash/crypash/internal/model"
)

// Narrative labels. Classification is an explicit ordered rule list
// evaluated top-down; the first matching rule wins and the order is part
// of the contract (a symbol on two lists takes the earlier label).
const (
	NarrativeStablecoin = "Stablecoin"
	NarrativeMeme       = "Meme"
	NarrativeAI         = "AI"
	NarrativeDeFi       = "DeFi"
	NarrativeExchange   = "Exchange Token"
	NarrativePayments   = "Payments"
	NarrativeL1         = "L1 Platform"
	NarrativeOther      = "Other"
)

type narrativeRule struct {
	label   string
	symbols []string
}

// narrativeRules in priority order. Stablecoins first so that a listed
// stable never scores as anything else; L1 last as the broadest bucket.
var narrativeRules = []narrativeRule{
	{NarrativeStablecoin, []string{"USDT", "USDC", "DAI", "TUSD", "USDE", "FDUSD"}},
	{NarrativeMeme, []string{"DOGE", "SHIB", "PEPE", "WIF", "BONK", "FLOKI"}},
	{NarrativeAI, []string{"FET", "AGIX", "RNDR", "TAO", "GRT", "OCEAN"}},
	{NarrativeDeFi, []string{"UNI", "AAVE", "MKR", "COMP", "CRV", "SNX", "LDO", "SUSHI"}},
	{NarrativeExchange, []string{"BNB", "OKB", "CRO", "KCS", "LEO"}},
	{NarrativePayments, []string{"XRP", "XLM", "LTC", "BCH", "DASH"}},
	{NarrativeL1, []string{"BTC", "ETH", "SOL", "ADA", "AVAX", "DOT", "NEAR", "ATOM", "TRX", "ALGO"}},
}

// ClassifyNarrative maps a ticker to its narrative bucket. Quote suffixes
// like "-USD" are stripped before matching.
func ClassifyNarrative(symbol string) string {
	base := strings.ToUpper(symbol)
	for _, suffix := range []string{"-USD", "-USDT", "-EUR"} {
		base = strings.TrimSuffix(base, suffix)
	}
	for _, rule := range narrativeRules {
		for _, s := range rule.symbols {
			if s == base {
				return rule.label
			}
		}
	}
	return NarrativeOther
}

// Lynch categories for the equities path.
const (
	LynchTurnaround = "Turnaround"
	LynchAssetPlay  = "Asset Play"
	LynchFastGrower = "Fast Grower"
	LynchStalwart   = "Stalwart"
	LynchCyclical   = "Cyclical"
	LynchSlowGrower = "Slow Grower"
	LynchUnknown    = "Unclassified"
)

var cyclicalSectors = map[string]bool{
	"energy":            true,
	"basic materials":   true,
	"industrials":       true,
	"consumer cyclical": true,
}

// ClassifyLynch assigns a Peter Lynch style category from fundamentals.
// Rule order is the contract: distress first, then deep value, then the
// growth ladder, with sector cyclicality as the late tie-breaker.
func ClassifyLynch(rec model.AssetRecord) string {
	growth := rec.RevenueGrowth
	margin := rec.OperatingMargin

	switch {
	case growth.Valid && growth.Value < 0 && margin.Valid && margin.Value < 0:
		return LynchTurnaround
	case rec.PB.Valid && rec.PB.Value < 1:
		return LynchAssetPlay
	case growth.Valid && growth.Value >= 0.20:
		return LynchFastGrower
	case growth.Valid && growth.Value >= 0.10 && rec.MarketCap.Valid && rec.MarketCap.Value >= 1e10:
		return LynchStalwart
	case cyclicalSectors[strings.ToLower(rec.Sector)]:
		return LynchCyclical
	case growth.Valid:
		return LynchSlowGrower
	default:
		return LynchUnknown
	}
}
