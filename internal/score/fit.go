package score

import (
	"fmt"
	"math"

	"github.com/crypash/crypash/internal/model"
)

// Fit verdicts. VerdictLimitedData flags a sentinel 0 caused by no
// applicable targets, which downstream must not confuse with a genuine
// 0/100.
const (
	VerdictLimitedData  = "limited data"
	VerdictPerfectMatch = "perfect match"
	VerdictStrongMatch  = "strong match"
	VerdictPartialMatch = "partial match"
	VerdictWeakMatch    = "weak match"
)

// Per-target points. Near-misses deliberately score above total misses:
// a bound missed by 20% is half credit, by 50% token credit.
const (
	pointsFull    = 10.0
	pointsNear    = 5.0
	pointsFar     = 2.0
	nearMissLimit = 20.0
	farMissLimit  = 50.0
)

// FitResult is the outcome of checking one record against a strategy's
// threshold checklist.
type FitResult struct {
	Score      int      `json:"score"`
	Verdict    string   `json:"verdict"`
	Details    []string `json:"details"`
	Applicable int      `json:"applicable"`
}

// Fit scores how well the record satisfies each target. Unknown metrics
// contribute nothing and do not count toward the denominator; with zero
// applicable targets the result is the "limited data" sentinel.
func Fit(rec model.AssetRecord, targets []model.Target) FitResult {
	res := FitResult{Details: make([]string, 0, len(targets))}

	var points float64
	for _, t := range targets {
		v := rec.Metric(t.Metric)
		if !v.Valid {
			res.Details = append(res.Details, fmt.Sprintf("➖ %s: not applicable", t.Metric))
			continue
		}
		res.Applicable++

		if t.Satisfied(v.Value) {
			points += pointsFull
			res.Details = append(res.Details, fmt.Sprintf("✅ %s", t.Metric))
			continue
		}

		miss := t.MissPct(v.Value)
		switch {
		case miss <= nearMissLimit:
			points += pointsNear
			res.Details = append(res.Details, fmt.Sprintf("🟡 %s: %+.1f%%", t.Metric, miss))
		case miss <= farMissLimit:
			points += pointsFar
			res.Details = append(res.Details, fmt.Sprintf("🟠 %s: %+.1f%%", t.Metric, miss))
		default:
			res.Details = append(res.Details, fmt.Sprintf("❌ %s: %+.1f%%", t.Metric, miss))
		}
	}

	if res.Applicable == 0 {
		res.Verdict = VerdictLimitedData
		return res
	}

	res.Score = int(math.Round(100 * points / (pointsFull * float64(res.Applicable))))
	switch {
	case res.Score == 100:
		res.Verdict = VerdictPerfectMatch
	case res.Score >= 70:
		res.Verdict = VerdictStrongMatch
	case res.Score >= 40:
		res.Verdict = VerdictPartialMatch
	default:
		res.Verdict = VerdictWeakMatch
	}
	return res
}
