package rank

import (
	"sort"

	"github.com/crypash/crypash/internal/model"
	"github.com/crypash/crypash/internal/score"
)

// Composite weighting: quality dominates, margin of safety tilts.
const (
	weightQuality = 0.6
	weightMOS     = 0.4
)

// Entry is one ranked row: the record, its scores, and the sort keys.
type Entry struct {
	Record model.AssetRecord `json:"record"`
	Card   model.ScoreCard   `json:"card"`
	Fit    *score.FitResult  `json:"fit,omitempty"`

	RankScore float64 `json:"rank_score"`
	Grade     string  `json:"grade"`

	// ScanScore is the count of headline criteria passed (0-4) when a
	// strategy was supplied; -1 when no strategy ran.
	ScanScore int `json:"scan_score"`
}

// StrictFilter removes any record failing one of the given thresholds.
// Unknown metrics fail strict mode: a strict screen cannot pass what it
// cannot verify.
func StrictFilter(records []model.AssetRecord, targets []model.Target) []model.AssetRecord {
	if len(targets) == 0 {
		return records
	}
	out := make([]model.AssetRecord, 0, len(records))
	for _, rec := range records {
		if satisfiesAll(rec, targets) {
			out = append(out, rec)
		}
	}
	return out
}

func satisfiesAll(rec model.AssetRecord, targets []model.Target) bool {
	for _, t := range targets {
		v := rec.Metric(t.Metric)
		if !v.Valid || !t.Satisfied(v.Value) {
			return false
		}
	}
	return true
}

// MOSContribution rescales margin of safety into a 0-100 contribution:
// clamped to ±100%, then 0% -> 50 points, +50% -> 75 points. Unknown MOS
// sits at the neutral 50.
func MOSContribution(mos model.Float) float64 {
	if !mos.Valid {
		return 50
	}
	v := mos.Value
	if v > 100 {
		v = 100
	}
	if v < -100 {
		v = -100
	}
	return 50 + v/2
}

// RankScore combines quality and margin of safety.
func RankScore(quality float64, mos model.Float) float64 {
	return weightQuality*quality + weightMOS*MOSContribution(mos)
}

// scanScoreCriteria caps how many strategy targets count toward the
// headline pass count.
const scanScoreCriteria = 4

// ScanScore counts how many of the strategy's first four targets the
// record passes. Unknown metrics fail the check, same as strict mode.
func ScanScore(rec model.AssetRecord, targets []model.Target) int {
	n := len(targets)
	if n > scanScoreCriteria {
		n = scanScoreCriteria
	}
	passed := 0
	for _, t := range targets[:n] {
		v := rec.Metric(t.Metric)
		if v.Valid && t.Satisfied(v.Value) {
			passed++
		}
	}
	return passed
}

// Build assembles ranked entries from scanner records: Crypash card,
// optional fit against the strategy, composite rank score and grade.
func Build(records []model.AssetRecord, targets []model.Target) []Entry {
	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		card := score.Crypash(rec)
		e := Entry{
			Record:    rec,
			Card:      card,
			RankScore: RankScore(float64(card.Total), rec.MarginOfSafety),
			Grade:     score.Grade(card.Total),
			ScanScore: -1,
		}
		if len(targets) > 0 {
			fit := score.Fit(rec, targets)
			e.Fit = &fit
			e.ScanScore = ScanScore(rec, targets)
		}
		entries = append(entries, e)
	}
	Sort(entries)
	return entries
}

// Sort orders entries in place. When scan scores are present they take
// priority; ties break by rank score descending, then symbol ascending
// so identical inputs always produce identical order.
func Sort(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.ScanScore != b.ScanScore {
			return a.ScanScore > b.ScanScore
		}
		if a.RankScore != b.RankScore {
			return a.RankScore > b.RankScore
		}
		return a.Record.Symbol < b.Record.Symbol
	})
}
