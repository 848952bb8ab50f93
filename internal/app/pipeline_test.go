package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crypash/crypash/internal/config"
	"github.com/crypash/crypash/internal/data"
	logx "github.com/crypash/crypash/internal/log"
	"github.com/crypash/crypash/internal/model"
	"github.com/crypash/crypash/internal/persistence"
	"github.com/crypash/crypash/internal/quota"
	"github.com/crypash/crypash/internal/scan"
	"github.com/crypash/crypash/internal/telemetry"
)

type fakeGateway struct {
	history map[string]model.Series
	err     error
	calls   int
}

func (f *fakeGateway) FetchHistory(_ context.Context, symbols []string, _ int) (map[string]model.Series, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]model.Series{}
	for _, sym := range symbols {
		if s, ok := f.history[sym]; ok {
			out[sym] = s
		}
	}
	return out, nil
}

func (f *fakeGateway) FetchMetadata(context.Context, string) (data.Metadata, error) {
	return data.Metadata{}, nil
}

// throttledMeta rate-limits the first metadata call, then serves.
type throttledMeta struct {
	gw       *fakeGateway
	throttle int
}

func (m *throttledMeta) FetchMetadata(ctx context.Context, symbol string) (data.Metadata, error) {
	if m.throttle > 0 {
		m.throttle--
		return data.Metadata{}, data.ErrRateLimited
	}
	return m.gw.FetchMetadata(ctx, symbol)
}

type denyQuota struct{}

func (denyQuota) GetTier(context.Context, string) (quota.Tier, error) { return quota.TierFree, nil }
func (denyQuota) CheckQuota(context.Context, string, string) (bool, int, error) {
	return false, 0, nil
}
func (denyQuota) RecordUsage(context.Context, string, string) error { return nil }

type failingQuota struct{}

func (failingQuota) GetTier(context.Context, string) (quota.Tier, error) { return "", nil }
func (failingQuota) CheckQuota(context.Context, string, string) (bool, int, error) {
	return false, 0, errors.New("redis down")
}
func (failingQuota) RecordUsage(context.Context, string, string) error { return nil }

func trendingSeries(symbol string, n int, step float64) model.Series {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := model.Series{Symbol: symbol}
	price := 100.0
	for i := 0; i < n; i++ {
		price += step
		s.Bars = append(s.Bars, model.Bar{
			Time:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: 1_000_000,
		})
	}
	return s
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Universe.Crypto = []string{"BTC-USD", "ETH-USD", "SOL-USD", "LINK-USD", "AVAX-USD", "UNI-USD"}
	return cfg
}

func newTestPipeline(gw *fakeGateway, q quota.Service) *Pipeline {
	return New(gw, q, persistence.NopStore{}, telemetry.New(prometheus.NewRegistry()), logx.NopSink{}, testConfig())
}

func fullHistory() map[string]model.Series {
	out := map[string]model.Series{}
	steps := map[string]float64{
		"BTC-USD": 1.0, "ETH-USD": 0.8, "SOL-USD": 1.2,
		"LINK-USD": 0.5, "AVAX-USD": 1.5, "UNI-USD": 0.3,
	}
	for sym, step := range steps {
		out[sym] = trendingSeries(sym, 250, step)
	}
	return out
}

func TestRunScan_RanksUniverse(t *testing.T) {
	gw := &fakeGateway{history: fullHistory()}
	p := newTestPipeline(gw, quota.NopService{})

	out, err := p.RunScan(context.Background(), "alice", model.ClassCrypto, "", false)
	require.NoError(t, err)
	assert.Len(t, out.Entries, 6)
	assert.Empty(t, out.Report.BulkError)
	for i := 1; i < len(out.Entries); i++ {
		prev, cur := out.Entries[i-1], out.Entries[i]
		assert.GreaterOrEqual(t, prev.RankScore, cur.RankScore)
	}
}

func TestRunScan_ThrottledMetadataBumpsRetryCounter(t *testing.T) {
	gw := &fakeGateway{history: fullHistory()}
	metrics := telemetry.New(prometheus.NewRegistry())
	p := New(gw, quota.NopService{}, persistence.NopStore{}, metrics, logx.NopSink{}, testConfig()).
		WithMetadata(&throttledMeta{gw: gw, throttle: 1})

	out, err := p.RunScan(context.Background(), "alice", model.ClassCrypto, "", false)
	require.NoError(t, err)
	assert.Len(t, out.Entries, 6)

	var m dto.Metric
	require.NoError(t, metrics.FetchRetries.Write(&m))
	assert.Equal(t, 1.0, m.GetCounter().GetValue())
}

func TestRunScan_QuotaDenied(t *testing.T) {
	p := newTestPipeline(&fakeGateway{history: fullHistory()}, denyQuota{})

	_, err := p.RunScan(context.Background(), "alice", model.ClassCrypto, "", false)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestRunScan_QuotaBackendFailureDenies(t *testing.T) {
	p := newTestPipeline(&fakeGateway{history: fullHistory()}, failingQuota{})

	_, err := p.RunScan(context.Background(), "alice", model.ClassCrypto, "", false)
	assert.ErrorContains(t, err, "redis down")
}

func TestRunScan_UnknownStrategy(t *testing.T) {
	p := newTestPipeline(&fakeGateway{history: fullHistory()}, quota.NopService{})

	_, err := p.RunScan(context.Background(), "alice", model.ClassCrypto, "does-not-exist", false)
	assert.ErrorContains(t, err, "unknown strategy")
}

func TestRunPortfolio_BuildsAllocation(t *testing.T) {
	gw := &fakeGateway{history: fullHistory()}
	p := newTestPipeline(gw, quota.NopService{})

	out, err := p.RunPortfolio(context.Background(), "alice", 5_000, model.RiskBalanced)
	require.NoError(t, err)
	require.NotEmpty(t, out.Allocation.Weights)
	assert.LessOrEqual(t, len(out.Selections), 6)

	sum := 0.0
	for sym, w := range out.Allocation.Weights {
		sum += w
		assert.Contains(t, out.Allocation.Tiers, sym)
		assert.Contains(t, out.Allocation.Amounts, sym)
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	// History is fetched twice: once for the scan, once for the solver.
	assert.Equal(t, 2, gw.calls)
}

func TestRunPortfolio_RejectsNonPositiveCapital(t *testing.T) {
	p := newTestPipeline(&fakeGateway{history: fullHistory()}, quota.NopService{})

	_, err := p.RunPortfolio(context.Background(), "alice", 0, model.RiskBalanced)
	assert.ErrorContains(t, err, "capital")
}

func TestRunPortfolio_EmptyScanFails(t *testing.T) {
	p := newTestPipeline(&fakeGateway{history: map[string]model.Series{}}, quota.NopService{})

	_, err := p.RunPortfolio(context.Background(), "alice", 5_000, model.RiskBalanced)
	assert.ErrorContains(t, err, "no scannable assets")
}

func TestRunDeepDive(t *testing.T) {
	gw := &fakeGateway{history: fullHistory()}
	p := newTestPipeline(gw, quota.NopService{})

	report, err := p.RunDeepDive(context.Background(), "alice", []string{"BTC-USD", "ETH-USD"})
	require.NoError(t, err)
	assert.Len(t, report.Stats, 2)
}

func TestSkipReasons(t *testing.T) {
	items := []scan.ItemResult{
		{Symbol: "A", Outcome: scan.OutcomeRecord},
		{Symbol: "B", Outcome: scan.OutcomeSkip, Reason: "no data"},
		{Symbol: "C", Outcome: scan.OutcomeSkip, Reason: "short history (10 < 30)"},
		{Symbol: "D", Outcome: scan.OutcomeSkip, Reason: "short history (5 < 30)"},
		{Symbol: "E", Outcome: scan.OutcomeError, Reason: "internal: boom"},
	}
	got := skipReasons(items)
	assert.Equal(t, map[string]int{
		"no data":       1,
		"short history": 2,
		"error":         1,
	}, got)
}
