package data

import (
	"context"

	"github.com/crypash/crypash/internal/model"
)

// Metadata is the static per-symbol snapshot a provider can supply. Any
// field a provider cannot fill stays Unknown; a missing field is not an
// error.
type Metadata struct {
	Name   string
	Sector string

	PE              model.Float
	PEG             model.Float
	PB              model.Float
	ROE             model.Float
	DividendYield   model.Float
	DebtToEquity    model.Float
	RevenueGrowth   model.Float
	OperatingMargin model.Float
	MarketCap       model.Float

	CirculatingSupply model.Float
	MaxSupply         model.Float
}

// Merge overlays known fields from other onto a copy of m. Used to stack
// a fallback provider behind the primary one.
func (m Metadata) Merge(other Metadata) Metadata {
	out := m
	if out.Name == "" {
		out.Name = other.Name
	}
	if out.Sector == "" {
		out.Sector = other.Sector
	}
	for _, p := range []struct {
		dst *model.Float
		src model.Float
	}{
		{&out.PE, other.PE},
		{&out.PEG, other.PEG},
		{&out.PB, other.PB},
		{&out.ROE, other.ROE},
		{&out.DividendYield, other.DividendYield},
		{&out.DebtToEquity, other.DebtToEquity},
		{&out.RevenueGrowth, other.RevenueGrowth},
		{&out.OperatingMargin, other.OperatingMargin},
		{&out.MarketCap, other.MarketCap},
		{&out.CirculatingSupply, other.CirculatingSupply},
		{&out.MaxSupply, other.MaxSupply},
	} {
		if !p.dst.Valid {
			*p.dst = p.src
		}
	}
	return out
}

// Gateway is the market data collaborator. FetchHistory is one bulk call
// for the whole universe; symbols with no data are simply absent from the
// returned map. FetchMetadata may fail per symbol without affecting the
// scan.
type Gateway interface {
	FetchHistory(ctx context.Context, symbols []string, days int) (map[string]model.Series, error)
	FetchMetadata(ctx context.Context, symbol string) (Metadata, error)
}
