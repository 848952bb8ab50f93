// Package config loads the YAML runtime configuration: universes,
// strategy presets, optimizer tuning, cache TTLs and collaborator
// endpoints. Missing fields fall back to shipped defaults so a partial
// file stays valid.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crypash/crypash/internal/model"
)

type Config struct {
	Universe   Universe                `yaml:"universe"`
	Defaults   []model.Target          `yaml:"default_targets"`
	Strategies []model.StrategyProfile `yaml:"strategies"`
	Optimizer  Optimizer               `yaml:"optimizer"`
	Cache      Cache                   `yaml:"cache"`
	Quota      Quota                   `yaml:"quota"`
	Monitor    Monitor                 `yaml:"monitor"`
	Postgres   Postgres                `yaml:"postgres"`
}

// Universe lists the tickers each scan class walks.
type Universe struct {
	Crypto []string `yaml:"crypto"`
	Equity []string `yaml:"equity"`
}

type Optimizer struct {
	RiskFreeRate float64 `yaml:"risk_free_rate"`
	MaxIters     int     `yaml:"max_iters"`
	TradingDays  float64 `yaml:"trading_days"`
}

type Cache struct {
	HistoryTTL Duration `yaml:"history_ttl"`
	MetaTTL    Duration `yaml:"meta_ttl"`
	MaxEntries int      `yaml:"max_entries"`
}

// Duration parses Go duration strings ("15m", "6h") from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Quota struct {
	RedisAddr string                    `yaml:"redis_addr"`
	Limits    map[string]map[string]int `yaml:"limits"`
}

type Monitor struct {
	Addr string `yaml:"addr"`
}

type Postgres struct {
	DSN string `yaml:"dsn"`
}

// Default returns the shipped configuration.
func Default() Config {
	return Config{
		Universe: Universe{
			Crypto: []string{
				"BTC-USD", "ETH-USD", "SOL-USD", "BNB-USD", "XRP-USD",
				"ADA-USD", "AVAX-USD", "LINK-USD", "DOT-USD", "MATIC-USD",
			},
			Equity: []string{"AAPL", "MSFT", "GOOG", "AMZN", "BRK-B"},
		},
		Defaults: []model.Target{
			{Metric: "pe", Bound: 15, Comparison: model.Below},
			{Metric: "roe", Bound: 0.15, Comparison: model.Above},
		},
		Strategies: []model.StrategyProfile{
			{
				Name: "value",
				Targets: []model.Target{
					{Metric: "pe", Bound: 15, Comparison: model.Below},
					{Metric: "pb", Bound: 1.5, Comparison: model.Below},
					{Metric: "dividend_yield", Bound: 0.02, Comparison: model.Above},
				},
			},
			{
				Name: "growth",
				Targets: []model.Target{
					{Metric: "revenue_growth", Bound: 0.20, Comparison: model.Above},
					{Metric: "peg", Bound: 2, Comparison: model.Below},
				},
			},
			{
				Name: "quality",
				Targets: []model.Target{
					{Metric: "roe", Bound: 0.15, Comparison: model.Above},
					{Metric: "debt_to_equity", Bound: 1, Comparison: model.Below},
					{Metric: "operating_margin", Bound: 0.15, Comparison: model.Above},
				},
			},
		},
		Optimizer: Optimizer{
			MaxIters:    500,
			TradingDays: 365,
		},
		Cache: Cache{
			HistoryTTL: Duration(15 * time.Minute),
			MetaTTL:    Duration(6 * time.Hour),
			MaxEntries: 2048,
		},
		Monitor: Monitor{Addr: ":8090"},
	}
}

// Load reads path over the defaults. An empty path returns the
// defaults as-is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if len(c.Universe.Crypto) == 0 && len(c.Universe.Equity) == 0 {
		return fmt.Errorf("universe: at least one of crypto or equity must be non-empty")
	}
	seen := map[string]bool{}
	for _, s := range c.Strategies {
		if s.Name == "" {
			return fmt.Errorf("strategies: preset with empty name")
		}
		if seen[s.Name] {
			return fmt.Errorf("strategies: duplicate preset %q", s.Name)
		}
		seen[s.Name] = true
		for _, tgt := range s.Targets {
			if tgt.Comparison != model.Below && tgt.Comparison != model.Above {
				return fmt.Errorf("strategies: %s/%s: comparison must be %q or %q", s.Name, tgt.Metric, model.Below, model.Above)
			}
		}
	}
	if c.Optimizer.MaxIters <= 0 {
		return fmt.Errorf("optimizer: max_iters must be positive")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache: max_entries must be positive")
	}
	return nil
}

// Strategy finds a preset by name.
func (c Config) Strategy(name string) (model.StrategyProfile, bool) {
	for _, s := range c.Strategies {
		if s.Name == name {
			return s, true
		}
	}
	return model.StrategyProfile{}, false
}
