package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crypash/crypash/internal/data"
	"github.com/crypash/crypash/internal/indicator"
	logx "github.com/crypash/crypash/internal/log"
	"github.com/crypash/crypash/internal/model"
	"github.com/crypash/crypash/internal/score"
)

// Outcome classifies what happened to one ticker during a scan. Explicit
// per-item outcomes replace blanket catch-and-continue: one bad ticker
// never aborts the batch, and the caller can see why each one dropped.
type Outcome string

const (
	OutcomeRecord Outcome = "record"
	OutcomeSkip   Outcome = "skip"
	OutcomeError  Outcome = "error"
)

// ItemResult is the per-ticker audit row.
type ItemResult struct {
	Symbol  string  `json:"symbol"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
}

// Report is the scan output. An empty Records with an empty BulkError is
// a valid "nothing qualified" result; a set BulkError means the batch
// download itself failed and the universe was scanned against no data.
type Report struct {
	RunID     string              `json:"run_id"`
	Records   []model.AssetRecord `json:"records"`
	Items     []ItemResult        `json:"items"`
	BulkError string              `json:"bulk_error,omitempty"`
	Started   time.Time           `json:"started"`
	Took      time.Duration       `json:"took"`
}

// Config tunes one scanner instance.
type Config struct {
	Class       model.AssetClass
	HistoryDays int // history window requested from the gateway
	MinHistory  int // bars required before an asset is scored
	ZWindow     int // z-score window
	// BTCSymbol marks the distinguished asset that gets the power-law
	// fair value when the composite line has too little history.
	BTCSymbol string
	// BTCGenesis anchors the power-law day count.
	BTCGenesis time.Time
}

// DefaultConfig returns the per-class policy constants: the crypto path
// needs 30 bars, the indicator-dependent equity path 200.
func DefaultConfig(class model.AssetClass) Config {
	cfg := Config{
		Class:       class,
		HistoryDays: 400,
		MinHistory:  30,
		ZWindow:     200,
		BTCSymbol:   "BTC-USD",
		BTCGenesis:  time.Date(2009, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	if class == model.ClassEquity {
		cfg.MinHistory = 200
	}
	return cfg
}

// MetadataFetcher is the optional per-symbol metadata source; nil
// disables metadata enrichment.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, symbol string) (data.Metadata, error)
}

// Scanner turns a ticker universe into AssetRecords, tolerating total or
// partial data-source failure.
type Scanner struct {
	gateway data.Gateway
	meta    MetadataFetcher
	retry   data.RetryPolicy
	cfg     Config
	sink    logx.ProgressSink
}

// NewScanner wires a scanner. The sink must be non-nil; use
// logx.NopSink{} to discard progress.
func NewScanner(gw data.Gateway, meta MetadataFetcher, cfg Config, sink logx.ProgressSink) *Scanner {
	return &Scanner{
		gateway: gw,
		meta:    meta,
		retry:   data.DefaultRetryPolicy(),
		cfg:     cfg,
		sink:    sink,
	}
}

// WithRetry swaps the backoff policy, letting callers attach an OnRetry
// hook or tighten the schedule.
func (s *Scanner) WithRetry(policy data.RetryPolicy) *Scanner {
	s.retry = policy
	return s
}

// Scan batch-fetches history for the universe and builds one AssetRecord
// per ticker that has enough data. Per-ticker failures are isolated;
// context cancellation stops the loop between tickers.
func (s *Scanner) Scan(ctx context.Context, symbols []string) (*Report, error) {
	report := &Report{
		RunID:   uuid.NewString(),
		Started: time.Now(),
	}
	defer func() { report.Took = time.Since(report.Started) }()

	if len(symbols) == 0 {
		return report, nil
	}

	s.sink.Progress(0, fmt.Sprintf("fetching history for %d symbols", len(symbols)))
	bulk, err := s.gateway.FetchHistory(ctx, symbols, s.cfg.HistoryDays)
	if err != nil {
		// Bulk failure: the per-asset loop still runs against an empty
		// map and reports zero results rather than aborting.
		log.Warn().Err(err).Msg("bulk history fetch failed; scanning against empty data")
		report.BulkError = err.Error()
		bulk = map[string]model.Series{}
	}

	for i, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		frac := float64(i) / float64(len(symbols))
		s.sink.Progress(frac, "analyzing "+symbol)

		item := s.processOne(ctx, symbol, bulk)
		report.Items = append(report.Items, item.result)
		if item.result.Outcome == OutcomeRecord {
			report.Records = append(report.Records, *item.record)
		}
	}

	s.sink.Progress(1, fmt.Sprintf("scan complete: %d records", len(report.Records)))
	return report, nil
}

type scanned struct {
	result ItemResult
	record *model.AssetRecord
}

// processOne isolates a single ticker; any unexpected failure becomes an
// OutcomeError row instead of propagating.
func (s *Scanner) processOne(ctx context.Context, symbol string, bulk map[string]model.Series) (out scanned) {
	out.result = ItemResult{Symbol: symbol, Outcome: OutcomeError}
	defer func() {
		if r := recover(); r != nil {
			out.result.Reason = fmt.Sprintf("internal: %v", r)
			out.record = nil
			log.Error().Str("symbol", symbol).Interface("panic", r).Msg("ticker processing failed")
		}
	}()

	series, ok := bulk[symbol]
	if !ok || series.Len() == 0 {
		out.result.Outcome = OutcomeSkip
		out.result.Reason = "no data"
		return out
	}
	if series.Len() < s.cfg.MinHistory {
		out.result.Outcome = OutcomeSkip
		out.result.Reason = fmt.Sprintf("short history (%d < %d)", series.Len(), s.cfg.MinHistory)
		return out
	}

	rec := s.buildRecord(symbol, series)
	s.enrich(ctx, &rec)
	s.appraise(&rec, series)

	out.result.Outcome = OutcomeRecord
	out.record = &rec
	return out
}

// buildRecord computes the fixed metric row from the price series alone.
func (s *Scanner) buildRecord(symbol string, series model.Series) model.AssetRecord {
	closes := series.Closes()
	returns := series.DailyReturns()

	rec := model.AssetRecord{
		Symbol:    symbol,
		Class:     s.cfg.Class,
		Price:     series.LastClose(),
		Change7d:  series.PctChange(7),
		Change30d: series.PctChange(30),
		RSI:       model.Known(indicator.RSI(closes, 14)),
	}

	// The z-score window is a hard minimum: unavailable means Unknown,
	// never a fabricated number.
	if len(closes) >= s.cfg.ZWindow {
		rec.ZScore = model.Known(indicator.ZScore(closes, s.cfg.ZWindow))
	}
	if len(returns) >= 30 {
		rec.Volatility30 = model.Known(indicator.AnnualizedVolatility(returns, 30))
	}

	volumes := series.Volumes()
	if n := len(volumes); n >= 30 {
		var short, long float64
		for _, v := range volumes[n-30:] {
			short += v
		}
		short /= 30
		for _, v := range volumes {
			long += v
		}
		long /= float64(n)

		rec.AvgVolume = model.Known(short * rec.Price)
		if long > 0 {
			rec.VolumeTrend = model.Known(short / long)
		}
	}

	if s.cfg.Class == model.ClassCrypto {
		rec.Narrative = score.ClassifyNarrative(symbol)
	}
	return rec
}

// enrich merges provider metadata, retrying through the backoff policy
// on rate-limit signatures. Exhausted retries leave the fields unknown;
// the ticker survives.
func (s *Scanner) enrich(ctx context.Context, rec *model.AssetRecord) {
	if s.meta == nil {
		return
	}
	var meta data.Metadata
	err := s.retry.Do(ctx, func() error {
		var ferr error
		meta, ferr = s.meta.FetchMetadata(ctx, rec.Symbol)
		return ferr
	})
	if err != nil {
		log.Warn().Str("symbol", rec.Symbol).Err(err).Msg("metadata unavailable")
		return
	}

	if rec.Name == "" {
		rec.Name = meta.Name
	}
	if rec.Sector == "" {
		rec.Sector = meta.Sector
	}
	rec.PE = meta.PE
	rec.PEG = meta.PEG
	rec.PB = meta.PB
	rec.ROE = meta.ROE
	rec.DividendYield = meta.DividendYield
	rec.DebtToEquity = meta.DebtToEquity
	rec.RevenueGrowth = meta.RevenueGrowth
	rec.OperatingMargin = meta.OperatingMargin
	rec.MarketCap = meta.MarketCap
	rec.CirculatingSupply = meta.CirculatingSupply
	rec.MaxSupply = meta.MaxSupply

	if s.cfg.Class == model.ClassEquity {
		rec.LynchClass = score.ClassifyLynch(*rec)
	}
}

// appraise fixes the fair-value priority chain: composite line when the
// long window is filled, power-law for the distinguished BTC asset,
// earnings multiple on the equities path. One winner, never blended.
func (s *Scanner) appraise(rec *model.AssetRecord, series model.Series) {
	switch {
	case s.cfg.Class == model.ClassCrypto:
		closes := series.Closes()
		if len(closes) >= s.cfg.ZWindow {
			line := indicator.FairValueLine(closes, series.Volumes(), 30, s.cfg.ZWindow)
			rec.FairValue = model.Known(line[len(line)-1])
		} else if rec.Symbol == s.cfg.BTCSymbol {
			days := time.Since(s.cfg.BTCGenesis).Hours() / 24
			if fv := indicator.PowerLawFairValue(days); fv > 0 {
				rec.FairValue = model.Known(fv)
			}
		}
	case rec.PE.Valid && rec.PE.Value > 0:
		// Graham-style: price at a conservative 15x of current earnings.
		eps := rec.Price / rec.PE.Value
		rec.FairValue = model.Known(eps * 15)
	}

	if rec.FairValue.Valid && rec.Price > 0 {
		rec.MarginOfSafety = model.Known(indicator.MarginOfSafety(rec.FairValue.Value, rec.Price))
	}
}
