package stockanalysis

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/crypash/crypash/internal/data"
	"github.com/crypash/crypash/internal/model"
)

const defaultBaseURL = "https://stockanalysis.com"

// Scraper fills the fundamentals the quote API omits (P/E, ROE, margins)
// by scraping the statistics table of a stockanalysis.com style page.
// Best-effort fallback: any ratio the page does not show stays Unknown.
type Scraper struct {
	baseURL string
	client  *http.Client
}

func NewScraper(baseURL string) *Scraper {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Scraper{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// labels the statistics table uses, mapped onto metadata fields.
var statLabels = map[string]func(*data.Metadata, model.Float){
	"pe ratio":         func(m *data.Metadata, v model.Float) { m.PE = v },
	"peg ratio":        func(m *data.Metadata, v model.Float) { m.PEG = v },
	"pb ratio":         func(m *data.Metadata, v model.Float) { m.PB = v },
	"return on equity": func(m *data.Metadata, v model.Float) { m.ROE = v },
	"dividend yield":   func(m *data.Metadata, v model.Float) { m.DividendYield = v },
	"debt / equity":    func(m *data.Metadata, v model.Float) { m.DebtToEquity = v },
	"revenue growth":   func(m *data.Metadata, v model.Float) { m.RevenueGrowth = v },
	"operating margin": func(m *data.Metadata, v model.Float) { m.OperatingMargin = v },
}

// FetchMetadata scrapes the stock page for the symbol.
func (s *Scraper) FetchMetadata(ctx context.Context, symbol string) (data.Metadata, error) {
	url := fmt.Sprintf("%s/stocks/%s/statistics/", s.baseURL, strings.ToLower(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return data.Metadata{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; crypash/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return data.Metadata{}, fmt.Errorf("fundamentals %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return data.Metadata{}, fmt.Errorf("fundamentals %s: %w", symbol, data.ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		return data.Metadata{}, fmt.Errorf("fundamentals %s: %w", symbol, data.ErrNoData)
	case resp.StatusCode != http.StatusOK:
		return data.Metadata{}, fmt.Errorf("fundamentals %s: status %d", symbol, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return data.Metadata{}, fmt.Errorf("fundamentals %s: parse: %w", symbol, err)
	}
	return Parse(doc), nil
}

// Parse extracts known ratios from the statistics tables.
func Parse(doc *goquery.Document) data.Metadata {
	var meta data.Metadata
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := strings.ToLower(strings.TrimSpace(cells.Eq(0).Text()))
		setter, ok := statLabels[label]
		if !ok {
			return
		}
		if v, ok := parseStat(cells.Eq(1).Text()); ok {
			setter(&meta, model.Known(v))
		}
	})
	return meta
}

// parseStat handles "18.4", "12.3%", "n/a" and "-" cell formats.
// Percentages come back as fractions (12.3% -> 0.123).
func parseStat(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" || strings.EqualFold(s, "n/a") {
		return 0, false
	}
	pct := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if pct {
		v /= 100
	}
	return v, true
}
