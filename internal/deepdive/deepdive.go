// Package deepdive derives long-horizon performance statistics for a
// shortlisted set of tickers. It is the post-ranking step: the scanner
// works on a wide universe with a short window, this package pulls a
// full year per survivor.
package deepdive

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"github.com/crypash/crypash/internal/data"
	"github.com/crypash/crypash/internal/indicator"
	logx "github.com/crypash/crypash/internal/log"
	"github.com/crypash/crypash/internal/model"
)

// TrendState is the 200-day moving-average position of the last close.
type TrendState string

const (
	TrendUp       TrendState = "uptrend"
	TrendDown     TrendState = "downtrend"
	TrendSideways TrendState = "sideways"
	TrendUnknown  TrendState = "unknown"
)

// trendBand is the dead zone around the moving average, as a fraction
// of the average.
const trendBand = 0.02

// Stats is the per-symbol deep-dive row. Metrics that need more history
// than the series carries stay Unknown.
type Stats struct {
	Symbol string `json:"symbol"`
	Bars   int    `json:"bars"`

	CAGR        model.Float `json:"cagr"`         // annualized growth, percent
	MaxDrawdown model.Float `json:"max_drawdown"` // worst peak-to-trough, percent (negative)
	Consistency model.Float `json:"consistency"`  // share of positive calendar months, percent
	Volatility  model.Float `json:"volatility"`   // annualized, percent
	Sharpe      model.Float `json:"sharpe"`

	Trend TrendState `json:"trend"`
}

// Report mirrors the scanner report shape: per-symbol audit rows plus
// the stats that survived.
type Report struct {
	Stats   []Stats       `json:"stats"`
	Skipped []string      `json:"skipped,omitempty"`
	Started time.Time     `json:"started"`
	Took    time.Duration `json:"took"`
}

// Config tunes one analyzer instance.
type Config struct {
	HistoryDays  int     // window requested from the gateway
	MinBars      int     // bars required before a symbol is analyzed
	TrendWindow  int     // moving-average window for the trend state
	TradingDays  float64 // annualization factor
	RiskFreeRate float64
}

func DefaultConfig() Config {
	return Config{
		HistoryDays: 365,
		MinBars:     60,
		TrendWindow: 200,
		TradingDays: 365,
	}
}

// Analyzer pulls long history for a shortlist and derives trend,
// consistency and performance statistics per symbol.
type Analyzer struct {
	gateway data.Gateway
	cfg     Config
	sink    logx.ProgressSink
}

func NewAnalyzer(gw data.Gateway, cfg Config, sink logx.ProgressSink) *Analyzer {
	return &Analyzer{gateway: gw, cfg: cfg, sink: sink}
}

// Analyze fetches history for the shortlist and computes one Stats row
// per symbol with enough data. Per-symbol failures are isolated the
// same way the scanner isolates them; a bulk fetch failure is the only
// error this returns.
func (a *Analyzer) Analyze(ctx context.Context, symbols []string) (*Report, error) {
	report := &Report{Started: time.Now()}
	defer func() { report.Took = time.Since(report.Started) }()

	if len(symbols) == 0 {
		return report, nil
	}

	a.sink.Progress(0, fmt.Sprintf("fetching %dd history for %d symbols", a.cfg.HistoryDays, len(symbols)))
	bulk, err := a.gateway.FetchHistory(ctx, symbols, a.cfg.HistoryDays)
	if err != nil {
		return report, fmt.Errorf("deep dive history fetch: %w", err)
	}

	for i, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		a.sink.Progress(float64(i)/float64(len(symbols)), "deep dive "+symbol)

		series, ok := bulk[symbol]
		if !ok || series.Len() < a.cfg.MinBars {
			report.Skipped = append(report.Skipped, symbol)
			continue
		}
		stats, ok := a.analyzeOne(symbol, series)
		if !ok {
			report.Skipped = append(report.Skipped, symbol)
			continue
		}
		report.Stats = append(report.Stats, stats)
	}

	sort.Slice(report.Stats, func(i, j int) bool { return report.Stats[i].Symbol < report.Stats[j].Symbol })
	a.sink.Progress(1, fmt.Sprintf("deep dive complete: %d symbols", len(report.Stats)))
	return report, nil
}

// analyzeOne computes the row for a single series. Unexpected failures
// turn into a skip rather than taking the batch down.
func (a *Analyzer) analyzeOne(symbol string, series model.Series) (stats Stats, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("symbol", symbol).Interface("panic", r).Msg("deep dive failed")
			ok = false
		}
	}()

	closes := series.Closes()
	returns := series.DailyReturns()

	stats = Stats{
		Symbol: symbol,
		Bars:   series.Len(),
		Trend:  a.trendState(closes),
	}

	if cagr, valid := annualizedGrowth(series); valid {
		stats.CAGR = model.Known(cagr)
	}
	stats.MaxDrawdown = maxDrawdown(closes)
	stats.Consistency = monthlyConsistency(series.Bars)

	if len(returns) >= 2 {
		vol := stat.StdDev(returns, nil) * math.Sqrt(a.cfg.TradingDays)
		stats.Volatility = model.Known(vol * 100)
		if vol > 0 {
			annualMean := stat.Mean(returns, nil) * a.cfg.TradingDays
			stats.Sharpe = model.Known((annualMean - a.cfg.RiskFreeRate) / vol)
		}
	}
	return stats, true
}

// trendState compares the last close against its long moving average
// with a small dead zone so a price hugging the line reads sideways.
func (a *Analyzer) trendState(closes []float64) TrendState {
	if len(closes) < a.cfg.TrendWindow {
		return TrendUnknown
	}
	ma := indicator.SMA(closes, a.cfg.TrendWindow)
	ref := ma[len(ma)-1]
	if ref <= 0 {
		return TrendUnknown
	}
	switch last := closes[len(closes)-1]; {
	case last > ref*(1+trendBand):
		return TrendUp
	case last < ref*(1-trendBand):
		return TrendDown
	default:
		return TrendSideways
	}
}

// annualizedGrowth computes CAGR in percent from the first and last bar,
// scaled by the actual calendar span rather than the bar count.
func annualizedGrowth(series model.Series) (float64, bool) {
	bars := series.Bars
	if len(bars) < 2 {
		return 0, false
	}
	first, last := bars[0], bars[len(bars)-1]
	days := last.Time.Sub(first.Time).Hours() / 24
	if days < 1 || first.Close <= 0 || last.Close <= 0 {
		return 0, false
	}
	growth := math.Pow(last.Close/first.Close, 365/days) - 1
	return growth * 100, true
}

// maxDrawdown is the worst peak-to-trough decline over the series, in
// percent (zero or negative).
func maxDrawdown(closes []float64) model.Float {
	if len(closes) < 2 {
		return model.Unknown()
	}
	peak := closes[0]
	worst := 0.0
	for _, c := range closes[1:] {
		if c > peak {
			peak = c
			continue
		}
		if peak > 0 {
			if dd := (c - peak) / peak; dd < worst {
				worst = dd
			}
		}
	}
	return model.Known(worst * 100)
}

// monthlyConsistency buckets bars into calendar months and returns the
// share of complete months that closed higher than they opened, in
// percent. The first and last partial months are counted as-is; with
// fewer than two months the metric stays Unknown.
func monthlyConsistency(bars []model.Bar) model.Float {
	type span struct{ open, close float64 }
	months := map[int]*span{}
	var keys []int
	for _, b := range bars {
		k := b.Time.Year()*12 + int(b.Time.Month())
		m, ok := months[k]
		if !ok {
			months[k] = &span{open: b.Close, close: b.Close}
			keys = append(keys, k)
			continue
		}
		m.close = b.Close
	}
	if len(keys) < 2 {
		return model.Unknown()
	}
	positive := 0
	for _, k := range keys {
		if m := months[k]; m.close > m.open {
			positive++
		}
	}
	return model.Known(float64(positive) / float64(len(keys)) * 100)
}
