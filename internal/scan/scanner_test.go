package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crypash/crypash/internal/data"
	logx "github.com/crypash/crypash/internal/log"
	"github.com/crypash/crypash/internal/model"
)

// fakeGateway serves canned series and metadata.
type fakeGateway struct {
	series  map[string]model.Series
	bulkErr error

	metaErrs map[string][]error // popped per call; nil entry means success
	metaHits map[string]int
}

func (f *fakeGateway) FetchHistory(ctx context.Context, symbols []string, days int) (map[string]model.Series, error) {
	if f.bulkErr != nil {
		return nil, f.bulkErr
	}
	out := make(map[string]model.Series)
	for _, s := range symbols {
		if ser, ok := f.series[s]; ok {
			out[s] = ser
		}
	}
	return out, nil
}

func (f *fakeGateway) FetchMetadata(ctx context.Context, symbol string) (data.Metadata, error) {
	if f.metaHits == nil {
		f.metaHits = make(map[string]int)
	}
	f.metaHits[symbol]++
	if errs := f.metaErrs[symbol]; len(errs) > 0 {
		err := errs[0]
		f.metaErrs[symbol] = errs[1:]
		if err != nil {
			return data.Metadata{}, err
		}
	}
	return data.Metadata{MarketCap: model.Known(1e9)}, nil
}

func mkSeries(symbol string, n int, start float64) model.Series {
	s := model.Series{Symbol: symbol}
	day := time.Now().AddDate(0, 0, -n)
	for i := 0; i < n; i++ {
		price := start + float64(i)*0.5
		s.Bars = append(s.Bars, model.Bar{
			Time:   day.AddDate(0, 0, i),
			Open:   price,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: 1000,
		})
	}
	return s
}

func instantRetry() data.RetryPolicy {
	return data.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Nanosecond}
}

func newTestScanner(gw *fakeGateway) *Scanner {
	s := NewScanner(gw, gw, DefaultConfig(model.ClassCrypto), logx.NopSink{})
	s.retry = instantRetry()
	return s
}

func TestScan_ShortHistoryIsSilentlyDropped(t *testing.T) {
	gw := &fakeGateway{series: map[string]model.Series{
		"A": mkSeries("A", 60, 100),
		"B": mkSeries("B", 10, 100), // below the 30-bar minimum
		"C": mkSeries("C", 60, 50),
	}}
	report, err := newTestScanner(gw).Scan(context.Background(), []string{"A", "B", "C"})
	require.NoError(t, err)

	require.Len(t, report.Records, 2)
	got := []string{report.Records[0].Symbol, report.Records[1].Symbol}
	assert.ElementsMatch(t, []string{"A", "C"}, got)

	require.Len(t, report.Items, 3)
	assert.Equal(t, OutcomeSkip, report.Items[1].Outcome)
	assert.Contains(t, report.Items[1].Reason, "short history")
}

func TestScan_MissingSymbolIsSkipped(t *testing.T) {
	gw := &fakeGateway{series: map[string]model.Series{
		"A": mkSeries("A", 60, 100),
	}}
	report, err := newTestScanner(gw).Scan(context.Background(), []string{"A", "GHOST"})
	require.NoError(t, err)
	require.Len(t, report.Records, 1)
	assert.Equal(t, OutcomeSkip, report.Items[1].Outcome)
	assert.Equal(t, "no data", report.Items[1].Reason)
}

func TestScan_BulkFailureYieldsEmptyNotError(t *testing.T) {
	gw := &fakeGateway{bulkErr: errors.New("provider down")}
	report, err := newTestScanner(gw).Scan(context.Background(), []string{"A", "B"})
	require.NoError(t, err)

	assert.Empty(t, report.Records)
	assert.Equal(t, "provider down", report.BulkError)
	// Distinguishable from a genuinely empty universe.
	empty, err := newTestScanner(&fakeGateway{}).Scan(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty.BulkError)
}

func TestScan_EmptyUniverseIsValid(t *testing.T) {
	report, err := newTestScanner(&fakeGateway{}).Scan(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Records)
	assert.Empty(t, report.Items)
}

func TestScan_MetadataRetriesOnRateLimit(t *testing.T) {
	gw := &fakeGateway{
		series: map[string]model.Series{"A": mkSeries("A", 60, 100)},
		metaErrs: map[string][]error{
			"A": {data.ErrRateLimited, data.ErrRateLimited, nil},
		},
	}
	report, err := newTestScanner(gw).Scan(context.Background(), []string{"A"})
	require.NoError(t, err)
	require.Len(t, report.Records, 1)
	assert.Equal(t, 3, gw.metaHits["A"])
	assert.True(t, report.Records[0].MarketCap.Valid)
}

func TestScan_MetadataExhaustionLeavesUnknown(t *testing.T) {
	gw := &fakeGateway{
		series: map[string]model.Series{"A": mkSeries("A", 60, 100)},
		metaErrs: map[string][]error{
			"A": {data.ErrRateLimited, data.ErrRateLimited, data.ErrRateLimited},
		},
	}
	report, err := newTestScanner(gw).Scan(context.Background(), []string{"A"})
	require.NoError(t, err)
	require.Len(t, report.Records, 1)
	// Field downgraded to unknown, ticker not aborted.
	assert.False(t, report.Records[0].MarketCap.Valid)
}

func TestScan_ShortSeriesLeavesZScoreUnknown(t *testing.T) {
	gw := &fakeGateway{series: map[string]model.Series{"A": mkSeries("A", 60, 100)}}
	report, err := newTestScanner(gw).Scan(context.Background(), []string{"A"})
	require.NoError(t, err)
	rec := report.Records[0]
	assert.False(t, rec.ZScore.Valid) // 60 bars < 200 window
	assert.True(t, rec.RSI.Valid)
}

func TestScan_Idempotent(t *testing.T) {
	gw := &fakeGateway{series: map[string]model.Series{
		"A": mkSeries("A", 250, 100),
		"B": mkSeries("B", 250, 40),
	}}
	s := newTestScanner(gw)
	r1, err := s.Scan(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	r2, err := s.Scan(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, r1.Records, r2.Records)
}

func TestScan_CancellationStopsBetweenTickers(t *testing.T) {
	gw := &fakeGateway{series: map[string]model.Series{"A": mkSeries("A", 60, 100)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestScanner(gw).Scan(ctx, []string{"A"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScan_CryptoRecordGetsNarrative(t *testing.T) {
	gw := &fakeGateway{series: map[string]model.Series{
		"BTC-USD": mkSeries("BTC-USD", 250, 40000),
	}}
	report, err := newTestScanner(gw).Scan(context.Background(), []string{"BTC-USD"})
	require.NoError(t, err)
	require.Len(t, report.Records, 1)
	rec := report.Records[0]
	assert.Equal(t, "L1 Platform", rec.Narrative)
	assert.True(t, rec.FairValue.Valid)
	assert.True(t, rec.MarginOfSafety.Valid)
}
