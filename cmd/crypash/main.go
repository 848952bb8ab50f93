package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/crypash/crypash/internal/app"
	"github.com/crypash/crypash/internal/config"
	"github.com/crypash/crypash/internal/data"
	"github.com/crypash/crypash/internal/data/cache"
	"github.com/crypash/crypash/internal/data/coingecko"
	"github.com/crypash/crypash/internal/data/stockanalysis"
	"github.com/crypash/crypash/internal/data/yahoo"
	logx "github.com/crypash/crypash/internal/log"
	"github.com/crypash/crypash/internal/persistence"
	"github.com/crypash/crypash/internal/quota"
	"github.com/crypash/crypash/internal/telemetry"
)

const (
	appName = "Crypash"
	version = "v1.4.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     "crypash",
		Short:   "Market screening and portfolio construction",
		Version: version,
		Long: `Crypash scans equity and crypto universes, scores assets against
strategy presets, and builds mean-variance portfolios from the survivors.`,
		Run: runDefaultEntry,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config YAML (empty uses built-in defaults)")
	rootCmd.PersistentFlags().String("user", "local", "User identity for quota and history")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a universe and rank the results",
		Long:  "Batch-fetches history for the configured universe, computes the metric row per asset, scores and ranks",
		RunE:  runScan,
	}
	scanCmd.Flags().String("class", "crypto", "Asset class to scan (crypto|equity)")
	scanCmd.Flags().String("strategy", "", "Strategy preset for fit scoring (value|growth|quality)")
	scanCmd.Flags().Bool("strict", false, "Drop records failing any strategy threshold")
	scanCmd.Flags().Int("top-n", 20, "Rows to print")

	portfolioCmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Build a weighted portfolio from the crypto universe",
		Long:  "Scans, selects a tiered sub-universe sized by capital, and solves constrained mean-variance weights",
		RunE:  runPortfolio,
	}
	portfolioCmd.Flags().Float64("capital", 10_000, "Capital to allocate")
	portfolioCmd.Flags().String("risk", "balanced", "Risk profile (conservative|balanced|aggressive)")

	deepdiveCmd := &cobra.Command{
		Use:   "deepdive [symbols...]",
		Short: "Deep-dive statistics for a shortlist",
		Long:  "Pulls a full year of history per symbol and derives CAGR, drawdown, consistency, trend and Sharpe",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDeepDive,
	}

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Start the monitor HTTP server",
		Long:  "Serves /healthz, /metrics and a websocket progress stream",
		RunE:  runMonitor,
	}
	monitorCmd.Flags().String("addr", "", "Listen address (overrides config)")

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run scheduled scans",
		Long:  "Starts a cron loop running the configured universes on fixed schedules",
		RunE:  runSchedule,
	}
	scheduleCmd.Flags().String("crypto-spec", "0 */4 * * *", "Cron spec for crypto scans")
	scheduleCmd.Flags().String("equity-spec", "30 9 * * 1-5", "Cron spec for equity scans")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored results for the user",
		RunE:  runHistory,
	}
	historyCmd.Flags().Int("limit", 10, "Maximum results to list")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(portfolioCmd)
	rootCmd.AddCommand(deepdiveCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(historyCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// runDefaultEntry points non-interactive callers at the subcommands.
func runDefaultEntry(cmd *cobra.Command, _ []string) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintf(os.Stderr, "Use subcommands for non-interactive automation:\n\n")
		fmt.Fprintf(os.Stderr, "  crypash scan --class crypto --strategy quality\n")
		fmt.Fprintf(os.Stderr, "  crypash portfolio --capital 25000 --risk conservative\n")
		fmt.Fprintf(os.Stderr, "  crypash --help\n")
		os.Exit(2)
	}
	_ = cmd.Help()
}

// buildPipeline wires the collaborators from config. Optional backends
// (Redis quota, Postgres persistence) degrade to nop implementations
// when their endpoints are not configured.
func buildPipeline(cmd *cobra.Command, sink logx.ProgressSink) (*app.Pipeline, config.Config, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfg, err
	}

	dataCache := cache.NewTTLCache(int64(cfg.Cache.MaxEntries))
	gateway := yahoo.NewGateway(dataCache, cfg.Cache.HistoryTTL.Std())

	meta := data.NewChain(
		gateway,
		coingecko.NewClient(""),
		stockanalysis.NewScraper(""),
	)

	var quotaSvc quota.Service = quota.NopService{}
	if cfg.Quota.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Quota.RedisAddr})
		quotaSvc = quota.NewRedisService(client, quotaLimits(cfg))
	}

	var store persistence.Store = persistence.NopStore{}
	if cfg.Postgres.DSN != "" {
		pg, err := persistence.Open(cmd.Context(), cfg.Postgres.DSN)
		if err != nil {
			log.Warn().Err(err).Msg("persistence unavailable; results will not be stored")
		} else {
			store = pg
		}
	}

	metrics := telemetry.New(prometheus.DefaultRegisterer)
	pipeline := app.New(gateway, quotaSvc, store, metrics, sink, cfg).WithMetadata(meta)
	return pipeline, cfg, nil
}

// quotaLimits translates the config table into the typed quota limits,
// falling back to the shipped defaults when the file omits it.
func quotaLimits(cfg config.Config) quota.Limits {
	if len(cfg.Quota.Limits) == 0 {
		return quota.DefaultLimits()
	}
	out := quota.Limits{}
	for tier, features := range cfg.Quota.Limits {
		m := map[string]int{}
		for feature, limit := range features {
			m[feature] = limit
		}
		out[quota.Tier(tier)] = m
	}
	return out
}
