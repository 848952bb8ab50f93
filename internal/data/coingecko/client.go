package coingecko

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/crypash/crypash/internal/data"
	"github.com/crypash/crypash/internal/model"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// Client fetches crypto metadata (supply, category) from a CoinGecko
// style API. It fills only the fields the crypto scoring path needs and
// tolerates any missing field.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Accept", "application/json")
	return &Client{http: c}
}

type coinResponse struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
	MarketData struct {
		MarketCap         map[string]float64 `json:"market_cap"`
		CirculatingSupply float64            `json:"circulating_supply"`
		MaxSupply         float64            `json:"max_supply"`
	} `json:"market_data"`
}

// FetchMetadata resolves a ticker like "BTC-USD" to coin metadata. A 404
// is reported as data.ErrNoData; a 429 surfaces with its status text so
// the retry layer recognizes the throttle.
func (c *Client) FetchMetadata(ctx context.Context, symbol string) (data.Metadata, error) {
	id := coinID(symbol)

	var body coinResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		SetQueryParam("localization", "false").
		SetQueryParam("tickers", "false").
		Get("/coins/" + id)
	if err != nil {
		return data.Metadata{}, fmt.Errorf("coingecko %s: %w", id, err)
	}
	switch {
	case resp.StatusCode() == 404:
		return data.Metadata{}, fmt.Errorf("coingecko %s: %w", id, data.ErrNoData)
	case resp.StatusCode() == 429:
		return data.Metadata{}, fmt.Errorf("coingecko %s: %w", id, data.ErrRateLimited)
	case resp.IsError():
		return data.Metadata{}, fmt.Errorf("coingecko %s: status %d", id, resp.StatusCode())
	}

	meta := data.Metadata{Name: body.Name}
	if len(body.Categories) > 0 {
		meta.Sector = body.Categories[0]
	}
	if v := body.MarketData.MarketCap["usd"]; v > 0 {
		meta.MarketCap = model.Known(v)
	}
	if body.MarketData.CirculatingSupply > 0 {
		meta.CirculatingSupply = model.Known(body.MarketData.CirculatingSupply)
	}
	if body.MarketData.MaxSupply > 0 {
		meta.MaxSupply = model.Known(body.MarketData.MaxSupply)
	}
	return meta, nil
}

// coinID maps common tickers to API slugs; unmapped tickers fall back to
// the lowercased base symbol.
func coinID(symbol string) string {
	base := strings.ToUpper(strings.TrimSuffix(symbol, "-USD"))
	if id, ok := wellKnownIDs[base]; ok {
		return id
	}
	return strings.ToLower(base)
}

var wellKnownIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"ADA":   "cardano",
	"AVAX":  "avalanche-2",
	"DOT":   "polkadot",
	"LINK":  "chainlink",
	"MATIC": "matic-network",
	"UNI":   "uniswap",
	"AAVE":  "aave",
	"DOGE":  "dogecoin",
	"XRP":   "ripple",
	"LTC":   "litecoin",
	"ATOM":  "cosmos",
	"NEAR":  "near",
}
