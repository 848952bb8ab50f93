package yahoo

import (
	"context"
	"fmt"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/crypash/crypash/internal/data"
	"github.com/crypash/crypash/internal/data/cache"
	"github.com/crypash/crypash/internal/model"
)

// Gateway implements data.Gateway against the Yahoo Finance chart and
// quote APIs. Calls go through a circuit breaker and a client-side rate
// limiter; history responses are cached with a short TTL.
type Gateway struct {
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	cache      cache.Cache
	historyTTL time.Duration
	metaTTL    time.Duration
}

// NewGateway builds a gateway with the given cache; pass cache.NopCache{}
// to disable caching.
func NewGateway(c cache.Cache, historyTTL time.Duration) *Gateway {
	settings := gobreaker.Settings{
		Name:        "yahoo",
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Gateway{
		breaker:    gobreaker.NewCircuitBreaker(settings),
		limiter:    rate.NewLimiter(rate.Limit(5), 10),
		cache:      c,
		historyTTL: historyTTL,
		metaTTL:    24 * time.Hour,
	}
}

// FetchHistory downloads daily OHLCV history for all symbols in one bulk
// pass. Symbols the provider has no data for are absent from the result;
// the call errors only when nothing at all could be fetched.
func (g *Gateway) FetchHistory(ctx context.Context, symbols []string, days int) (map[string]model.Series, error) {
	cacheKey := fmt.Sprintf("yahoo:history:%d:%v", days, symbols)
	if cached, ok := g.cache.Get(cacheKey); ok {
		if m, ok := cached.(map[string]model.Series); ok {
			return m, nil
		}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	res, err := g.breaker.Execute(func() (interface{}, error) {
		return g.fetchAll(ctx, symbols, days)
	})
	if err != nil {
		return nil, fmt.Errorf("bulk history fetch: %w", err)
	}

	out := res.(map[string]model.Series)
	g.cache.Put(cacheKey, out, g.historyTTL)
	return out, nil
}

func (g *Gateway) fetchAll(ctx context.Context, symbols []string, days int) (map[string]model.Series, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	out := make(map[string]model.Series, len(symbols))
	var firstErr error
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		series, err := fetchOne(symbol, start, end)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			log.Debug().Str("symbol", symbol).Err(err).Msg("history unavailable")
			continue
		}
		if len(series.Bars) > 0 {
			out[symbol] = series
		}
	}
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func fetchOne(symbol string, start, end time.Time) (model.Series, error) {
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}
	iter := chart.Get(params)

	series := model.Series{Symbol: symbol}
	for iter.Next() {
		bar := iter.Bar()
		series.Bars = append(series.Bars, model.Bar{
			Time:   time.Unix(int64(bar.Timestamp), 0),
			Open:   bar.Open.InexactFloat64(),
			High:   bar.High.InexactFloat64(),
			Low:    bar.Low.InexactFloat64(),
			Close:  bar.Close.InexactFloat64(),
			Volume: float64(bar.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return model.Series{}, fmt.Errorf("chart %s: %w", symbol, err)
	}
	return series, nil
}

// FetchMetadata pulls the quote summary for one symbol. Fields Yahoo does
// not serve (ROE, margins) stay Unknown for a fallback provider to fill.
func (g *Gateway) FetchMetadata(ctx context.Context, symbol string) (data.Metadata, error) {
	cacheKey := "yahoo:meta:" + symbol
	if cached, ok := g.cache.Get(cacheKey); ok {
		if m, ok := cached.(data.Metadata); ok {
			return m, nil
		}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return data.Metadata{}, err
	}

	res, err := g.breaker.Execute(func() (interface{}, error) {
		return equity.Get(symbol)
	})
	if err != nil {
		return data.Metadata{}, fmt.Errorf("quote %s: %w", symbol, err)
	}

	e, ok := res.(*finance.Equity)
	if !ok || e == nil {
		return data.Metadata{}, data.ErrNoData
	}
	meta := data.Metadata{
		Name:          e.ShortName,
		PE:            knownNonZero(e.TrailingPE),
		PB:            knownNonZero(e.PriceToBook),
		DividendYield: knownNonZero(e.TrailingAnnualDividendYield),
		MarketCap:     knownNonZero(float64(e.MarketCap)),
	}
	g.cache.Put(cacheKey, meta, g.metaTTL)
	return meta, nil
}

// knownNonZero treats the provider's zero value as a missing field.
func knownNonZero(v float64) model.Float {
	if v == 0 {
		return model.Unknown()
	}
	return model.Known(v)
}
