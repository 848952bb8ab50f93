package model

import "strings"

// AssetClass selects the scan path. The crypto path needs 30 bars of
// history, the indicator-heavy equity path needs 200.
type AssetClass string

const (
	ClassCrypto AssetClass = "crypto"
	ClassEquity AssetClass = "equity"
)

// AssetRecord is one row of the scan table: identity, price facts and the
// derived metric battery for a single ticker. Records are created fresh
// each scan run and never mutated after scoring is merged in.
type AssetRecord struct {
	Symbol string     `json:"symbol"`
	Class  AssetClass `json:"class"`
	Name   string     `json:"name,omitempty"`
	Sector string     `json:"sector,omitempty"`

	Price     float64 `json:"price"`
	Change7d  Float   `json:"change_7d"`
	Change30d Float   `json:"change_30d"`

	ZScore         Float  `json:"z_score"`
	RSI            Float  `json:"rsi"`
	Volatility30   Float  `json:"volatility_30"`
	FairValue      Float  `json:"fair_value"`
	MarginOfSafety Float  `json:"margin_of_safety"`
	Narrative      string `json:"narrative,omitempty"`
	LynchClass     string `json:"lynch_class,omitempty"`

	// Fundamentals (equities path; partially filled for crypto).
	PE              Float `json:"pe"`
	PEG             Float `json:"peg"`
	PB              Float `json:"pb"`
	ROE             Float `json:"roe"`
	DividendYield   Float `json:"dividend_yield"`
	DebtToEquity    Float `json:"debt_to_equity"`
	RevenueGrowth   Float `json:"revenue_growth"`
	OperatingMargin Float `json:"operating_margin"`
	MarketCap       Float `json:"market_cap"`

	// Activity (crypto path).
	AvgVolume         Float `json:"avg_volume"`
	VolumeTrend       Float `json:"volume_trend"`
	CirculatingSupply Float `json:"circulating_supply"`
	MaxSupply         Float `json:"max_supply"`
}

// Metric resolves a strategy target metric name to the record field.
// Names are matched case-insensitively; unrecognized names are Unknown.
func (r AssetRecord) Metric(name string) Float {
	switch strings.ToLower(name) {
	case "price":
		return Known(r.Price)
	case "change_7d", "change7d":
		return r.Change7d
	case "change_30d", "change30d":
		return r.Change30d
	case "zscore", "z_score", "mvrv_z":
		return r.ZScore
	case "rsi":
		return r.RSI
	case "volatility", "volatility_30":
		return r.Volatility30
	case "mos", "margin_of_safety":
		return r.MarginOfSafety
	case "pe":
		return r.PE
	case "peg":
		return r.PEG
	case "pb":
		return r.PB
	case "roe":
		return r.ROE
	case "dividend_yield", "yield":
		return r.DividendYield
	case "debt_to_equity", "de":
		return r.DebtToEquity
	case "revenue_growth", "growth":
		return r.RevenueGrowth
	case "operating_margin":
		return r.OperatingMargin
	case "market_cap", "mcap":
		return r.MarketCap
	case "avg_volume":
		return r.AvgVolume
	case "volume_trend":
		return r.VolumeTrend
	default:
		return Unknown()
	}
}
