// Package app wires the collaborators into the user-facing operations:
// scan, deep dive and portfolio construction. Quota is checked before
// each expensive operation and recorded after success; persistence is
// best-effort.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/crypash/crypash/internal/config"
	"github.com/crypash/crypash/internal/data"
	"github.com/crypash/crypash/internal/deepdive"
	logx "github.com/crypash/crypash/internal/log"
	"github.com/crypash/crypash/internal/model"
	"github.com/crypash/crypash/internal/persistence"
	"github.com/crypash/crypash/internal/portfolio"
	"github.com/crypash/crypash/internal/quota"
	"github.com/crypash/crypash/internal/rank"
	"github.com/crypash/crypash/internal/scan"
	"github.com/crypash/crypash/internal/telemetry"
)

// ErrQuotaExceeded is returned when the user's daily allowance for the
// requested feature is used up.
var ErrQuotaExceeded = fmt.Errorf("quota exceeded")

// Pipeline owns the wired collaborators. Zero-value collaborators are
// not allowed; use New with nop implementations where a backend is not
// configured.
type Pipeline struct {
	gateway data.Gateway
	meta    scan.MetadataFetcher
	quota   quota.Service
	store   persistence.Store
	metrics *telemetry.Metrics
	sink    logx.ProgressSink
	cfg     config.Config
}

func New(gw data.Gateway, q quota.Service, store persistence.Store, m *telemetry.Metrics, sink logx.ProgressSink, cfg config.Config) *Pipeline {
	return &Pipeline{gateway: gw, quota: q, store: store, metrics: m, sink: sink, cfg: cfg}
}

// WithMetadata overrides the metadata source. Without it the pipeline
// uses the gateway's own metadata side when it has one.
func (p *Pipeline) WithMetadata(meta scan.MetadataFetcher) *Pipeline {
	p.meta = meta
	return p
}

// ScanOutput pairs the raw scan report with the ranked table.
type ScanOutput struct {
	Report  *scan.Report `json:"report"`
	Entries []rank.Entry `json:"entries"`
}

// RunScan walks the configured universe for the class, scores and ranks
// the survivors, and optionally strict-filters against a named strategy.
func (p *Pipeline) RunScan(ctx context.Context, user string, class model.AssetClass, strategy string, strict bool) (*ScanOutput, error) {
	if err := p.admit(ctx, user, quota.FeatureScan); err != nil {
		return nil, err
	}

	universe := p.cfg.Universe.Crypto
	if class == model.ClassEquity {
		universe = p.cfg.Universe.Equity
	}

	targets, err := p.resolveTargets(strategy)
	if err != nil {
		return nil, err
	}

	report, err := p.newScanner(class).Scan(ctx, universe)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	p.metrics.ObserveScan(string(class), report.Took, skipReasons(report.Items))

	records := report.Records
	if strict {
		records = rank.StrictFilter(records, targets)
	}
	out := &ScanOutput{
		Report:  report,
		Entries: rank.Build(records, targets),
	}

	p.record(ctx, user, quota.FeatureScan)
	p.persist(ctx, user, "scan", out)
	return out, nil
}

// RunDeepDive analyzes a shortlist with a full year of history.
func (p *Pipeline) RunDeepDive(ctx context.Context, user string, symbols []string) (*deepdive.Report, error) {
	if err := p.admit(ctx, user, quota.FeatureDeepDive); err != nil {
		return nil, err
	}

	analyzer := deepdive.NewAnalyzer(p.gateway, deepdive.DefaultConfig(), p.sink)
	report, err := analyzer.Analyze(ctx, symbols)
	if err != nil {
		return nil, err
	}

	p.record(ctx, user, quota.FeatureDeepDive)
	p.persist(ctx, user, "deepdive", report)
	return report, nil
}

// PortfolioOutput is the construction result.
type PortfolioOutput struct {
	Selections []portfolio.Selection     `json:"selections"`
	Allocation model.PortfolioAllocation `json:"allocation"`
}

// RunPortfolio scans the crypto universe, selects a tiered sub-universe
// sized by capital, and solves for weights under the risk profile.
func (p *Pipeline) RunPortfolio(ctx context.Context, user string, capital float64, profile model.RiskProfile) (*PortfolioOutput, error) {
	if err := p.admit(ctx, user, quota.FeaturePortfolio); err != nil {
		return nil, err
	}
	if capital <= 0 {
		return nil, fmt.Errorf("portfolio: capital must be positive")
	}

	report, err := p.newScanner(model.ClassCrypto).Scan(ctx, p.cfg.Universe.Crypto)
	if err != nil {
		return nil, fmt.Errorf("portfolio scan: %w", err)
	}
	p.metrics.ObserveScan(string(model.ClassCrypto), report.Took, skipReasons(report.Items))
	if len(report.Records) == 0 {
		return nil, fmt.Errorf("portfolio: no scannable assets in universe")
	}

	entries := rank.Build(report.Records, nil)
	candidates := make([]portfolio.Candidate, 0, len(entries))
	for _, e := range entries {
		candidates = append(candidates, portfolio.Candidate{
			Symbol:   e.Record.Symbol,
			Quality:  e.RankScore,
			Momentum: e.Record.Change30d.Or(0),
		})
	}

	targetN := portfolio.AssetCount(capital)
	selections := portfolio.SelectUniverse(candidates, targetN)
	if len(selections) == 0 {
		return nil, fmt.Errorf("portfolio: selection produced no assets")
	}

	symbols := make([]string, len(selections))
	for i, s := range selections {
		symbols[i] = s.Symbol
	}
	p.sink.Progress(0.8, fmt.Sprintf("optimizing %d assets", len(symbols)))

	history, err := p.gateway.FetchHistory(ctx, symbols, 365)
	if err != nil {
		return nil, fmt.Errorf("portfolio history fetch: %w", err)
	}
	closes := make(map[string][]float64, len(history))
	for sym, series := range history {
		closes[sym] = series.Closes()
	}

	solverCfg := portfolio.DefaultSolverConfig()
	solverCfg.RiskFreeRate = p.cfg.Optimizer.RiskFreeRate
	if p.cfg.Optimizer.MaxIters > 0 {
		solverCfg.MaxIters = p.cfg.Optimizer.MaxIters
	}
	if p.cfg.Optimizer.TradingDays > 0 {
		solverCfg.TradingDays = p.cfg.Optimizer.TradingDays
	}

	alloc := portfolio.Optimize(closes, profile, solverCfg)
	if alloc.Method == model.MethodEqualWeight {
		p.metrics.OptimizerFallbacks.Inc()
	}
	alloc.Tiers = make(map[string]string, len(selections))
	for _, s := range selections {
		if _, ok := alloc.Weights[s.Symbol]; ok {
			alloc.Tiers[s.Symbol] = s.Tier
		}
	}
	alloc = alloc.WithAmounts(capital)

	out := &PortfolioOutput{Selections: selections, Allocation: alloc}
	p.record(ctx, user, quota.FeaturePortfolio)
	p.persist(ctx, user, "portfolio", out)
	p.sink.Progress(1, "portfolio ready")
	return out, nil
}

// History returns the user's stored results, newest first.
func (p *Pipeline) History(ctx context.Context, user string, limit int) ([]persistence.Result, error) {
	return p.store.LoadHistory(ctx, user, limit)
}

func (p *Pipeline) resolveTargets(strategy string) ([]model.Target, error) {
	if strategy == "" {
		return nil, nil
	}
	profile, ok := p.cfg.Strategy(strategy)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
	return profile.Merged(p.cfg.Defaults), nil
}

// newScanner builds a class scanner with the retry counter hooked into
// the backoff policy, so throttle-driven retries show up in /metrics.
func (p *Pipeline) newScanner(class model.AssetClass) *scan.Scanner {
	rp := data.DefaultRetryPolicy()
	rp.OnRetry = p.metrics.FetchRetries.Inc
	return scan.NewScanner(p.gateway, p.metadataSource(), scan.DefaultConfig(class), p.sink).
		WithRetry(rp)
}

// metadataSource prefers the explicit override, then the gateway's own
// metadata side.
func (p *Pipeline) metadataSource() scan.MetadataFetcher {
	if p.meta != nil {
		return p.meta
	}
	if m, ok := p.gateway.(scan.MetadataFetcher); ok {
		return m
	}
	return nil
}

// admit enforces the quota gate. A quota backend failure denies the
// operation: better to refuse than to hand out unmetered work.
func (p *Pipeline) admit(ctx context.Context, user, feature string) error {
	allowed, remaining, err := p.quota.CheckQuota(ctx, user, feature)
	if err != nil {
		return fmt.Errorf("quota check: %w", err)
	}
	if !allowed {
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, feature)
	}
	if remaining != quota.Unlimited {
		log.Debug().Str("user", user).Str("feature", feature).Int("remaining", remaining).Msg("quota admitted")
	}
	return nil
}

func (p *Pipeline) record(ctx context.Context, user, feature string) {
	if err := p.quota.RecordUsage(ctx, user, feature); err != nil {
		log.Warn().Str("user", user).Str("feature", feature).Err(err).Msg("usage record failed")
	}
}

func (p *Pipeline) persist(ctx context.Context, user, kind string, payload any) {
	if err := p.store.SaveResult(ctx, user, kind, payload); err != nil {
		log.Warn().Str("user", user).Str("kind", kind).Err(err).Msg("result save failed")
	}
}

// skipReasons coarsens per-item reasons into stable metric labels.
func skipReasons(items []scan.ItemResult) map[string]int {
	out := map[string]int{}
	for _, item := range items {
		switch item.Outcome {
		case scan.OutcomeSkip:
			reason := item.Reason
			if i := strings.Index(reason, " ("); i > 0 {
				reason = reason[:i]
			}
			out[reason]++
		case scan.OutcomeError:
			out["error"]++
		}
	}
	return out
}
