package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crypash/crypash/internal/model"
)

func TestMOSContribution(t *testing.T) {
	assert.Equal(t, 50.0, MOSContribution(model.Unknown()))
	assert.Equal(t, 50.0, MOSContribution(model.Known(0)))
	assert.Equal(t, 75.0, MOSContribution(model.Known(50)))
	assert.Equal(t, 25.0, MOSContribution(model.Known(-50)))
	// Clamped to ±100% before rescaling.
	assert.Equal(t, 100.0, MOSContribution(model.Known(250)))
	assert.Equal(t, 0.0, MOSContribution(model.Known(-300)))
}

func TestRankScore(t *testing.T) {
	// 0.6*80 + 0.4*75 = 78
	assert.InDelta(t, 78.0, RankScore(80, model.Known(50)), 1e-9)
	// Unknown MOS contributes the neutral 50.
	assert.InDelta(t, 0.6*80+0.4*50, RankScore(80, model.Unknown()), 1e-9)
}

func TestStrictFilter(t *testing.T) {
	records := []model.AssetRecord{
		{Symbol: "GOOD", PE: model.Known(10), ROE: model.Known(0.20)},
		{Symbol: "HIGHPE", PE: model.Known(30), ROE: model.Known(0.20)},
		{Symbol: "NOPE", ROE: model.Known(0.20)}, // PE unknown
	}
	targets := []model.Target{
		{Metric: "PE", Bound: 15, Comparison: model.Below},
		{Metric: "ROE", Bound: 0.15, Comparison: model.Above},
	}
	out := StrictFilter(records, targets)
	require.Len(t, out, 1)
	assert.Equal(t, "GOOD", out[0].Symbol)

	// Empty target list passes everything through untouched.
	assert.Len(t, StrictFilter(records, nil), 3)
}

func TestSort_ScanScoreTakesPriority(t *testing.T) {
	entries := []Entry{
		{Record: model.AssetRecord{Symbol: "LOWQ"}, RankScore: 40, ScanScore: 4},
		{Record: model.AssetRecord{Symbol: "HIGHQ"}, RankScore: 90, ScanScore: 2},
	}
	Sort(entries)
	assert.Equal(t, "LOWQ", entries[0].Record.Symbol)
}

func TestSort_TiesBreakByRankThenSymbol(t *testing.T) {
	entries := []Entry{
		{Record: model.AssetRecord{Symbol: "B"}, RankScore: 60, ScanScore: 3},
		{Record: model.AssetRecord{Symbol: "A"}, RankScore: 60, ScanScore: 3},
		{Record: model.AssetRecord{Symbol: "C"}, RankScore: 80, ScanScore: 3},
	}
	Sort(entries)
	assert.Equal(t, "C", entries[0].Record.Symbol)
	assert.Equal(t, "A", entries[1].Record.Symbol)
	assert.Equal(t, "B", entries[2].Record.Symbol)
}

func TestSort_Deterministic(t *testing.T) {
	mk := func() []Entry {
		return []Entry{
			{Record: model.AssetRecord{Symbol: "X"}, RankScore: 50, ScanScore: -1},
			{Record: model.AssetRecord{Symbol: "Y"}, RankScore: 50, ScanScore: -1},
			{Record: model.AssetRecord{Symbol: "Z"}, RankScore: 70, ScanScore: -1},
		}
	}
	a, b := mk(), mk()
	Sort(a)
	Sort(b)
	assert.Equal(t, a, b)
}

func TestScanScore_CountsFirstFourCriteria(t *testing.T) {
	rec := model.AssetRecord{
		PE:  model.Known(10),
		ROE: model.Known(0.20),
		PB:  model.Known(1.2),
		// PEG unknown: fails its check.
	}
	targets := []model.Target{
		{Metric: "PE", Bound: 15, Comparison: model.Below},
		{Metric: "ROE", Bound: 0.15, Comparison: model.Above},
		{Metric: "PB", Bound: 2, Comparison: model.Below},
		{Metric: "PEG", Bound: 1.5, Comparison: model.Below},
		// A fifth target never counts, passing or not.
		{Metric: "PE", Bound: 100, Comparison: model.Below},
	}
	assert.Equal(t, 3, ScanScore(rec, targets))
	assert.Equal(t, 3, ScanScore(rec, targets[:4]))
	assert.Equal(t, 2, ScanScore(rec, targets[:2]))
}

func TestBuild_ProducesScanScoreWithStrategy(t *testing.T) {
	records := []model.AssetRecord{
		{Symbol: "PASSES", PE: model.Known(8), ROE: model.Known(0.25)},
		{Symbol: "MISSES", PE: model.Known(40), ROE: model.Known(0.25)},
	}
	targets := []model.Target{
		{Metric: "PE", Bound: 15, Comparison: model.Below},
		{Metric: "ROE", Bound: 0.15, Comparison: model.Above},
	}

	entries := Build(records, targets)
	require.Len(t, entries, 2)
	assert.Equal(t, "PASSES", entries[0].Record.Symbol)
	assert.Equal(t, 2, entries[0].ScanScore)
	assert.Equal(t, 1, entries[1].ScanScore)

	// Without a strategy the field stays at its absent marker.
	for _, e := range Build(records, nil) {
		assert.Equal(t, -1, e.ScanScore)
	}
}

func TestBuild_RanksAndGrades(t *testing.T) {
	records := []model.AssetRecord{
		{
			Symbol:         "STRONG-USD",
			Narrative:      "L1 Platform",
			MarketCap:      model.Known(4e11),
			AvgVolume:      model.Known(2e10),
			VolumeTrend:    model.Known(1.5),
			Change7d:       model.Known(5),
			Change30d:      model.Known(12),
			MarginOfSafety: model.Known(30),
		},
		{
			Symbol:         "WEAK-USD",
			Narrative:      "Meme",
			MarketCap:      model.Known(5e7),
			AvgVolume:      model.Known(1e5),
			VolumeTrend:    model.Known(0.5),
			MarginOfSafety: model.Known(-40),
		},
	}
	entries := Build(records, []model.Target{
		{Metric: "mos", Bound: 0, Comparison: model.Above},
	})
	require.Len(t, entries, 2)
	assert.Equal(t, "STRONG-USD", entries[0].Record.Symbol)
	assert.Greater(t, entries[0].RankScore, entries[1].RankScore)
	require.NotNil(t, entries[0].Fit)
	assert.Equal(t, 100, entries[0].Fit.Score)
	assert.NotEmpty(t, entries[0].Grade)
}
