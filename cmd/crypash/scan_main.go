package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	logx "github.com/crypash/crypash/internal/log"
	"github.com/crypash/crypash/internal/model"
	"github.com/crypash/crypash/internal/rank"
)

func runScan(cmd *cobra.Command, _ []string) error {
	className, _ := cmd.Flags().GetString("class")
	strategy, _ := cmd.Flags().GetString("strategy")
	strict, _ := cmd.Flags().GetBool("strict")
	topN, _ := cmd.Flags().GetInt("top-n")
	user, _ := cmd.Flags().GetString("user")

	class, err := parseClass(className)
	if err != nil {
		return err
	}

	pipeline, _, err := buildPipeline(cmd, logx.NewLogSink())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	log.Info().Str("class", className).Str("strategy", strategy).Bool("strict", strict).Msg("starting scan")
	out, err := pipeline.RunScan(ctx, user, class, strategy, strict)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if out.Report.BulkError != "" {
		log.Warn().Str("error", out.Report.BulkError).Msg("bulk fetch degraded")
	}

	printEntries(out.Entries, topN)
	fmt.Printf("\n%d records from %d tickers in %s\n",
		len(out.Report.Records), len(out.Report.Items), out.Report.Took.Round(time.Millisecond))
	return nil
}

func parseClass(name string) (model.AssetClass, error) {
	switch strings.ToLower(name) {
	case "crypto":
		return model.ClassCrypto, nil
	case "equity":
		return model.ClassEquity, nil
	default:
		return "", fmt.Errorf("unknown asset class %q (crypto|equity)", name)
	}
}

func printEntries(entries []rank.Entry, topN int) {
	if len(entries) == 0 {
		fmt.Println("No assets qualified.")
		return
	}
	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}

	fmt.Printf("%-4s %-10s %-12s %6s %6s %-6s %8s %-12s\n",
		"#", "SYMBOL", "PRICE", "SCORE", "RANK", "GRADE", "MOS%", "VERDICT")
	for i, e := range entries {
		mos := "-"
		if e.Record.MarginOfSafety.Valid {
			mos = fmt.Sprintf("%+.1f", e.Record.MarginOfSafety.Value)
		}
		fmt.Printf("%-4d %-10s %-12.2f %6d %6.1f %-6s %8s %-12s\n",
			i+1, e.Record.Symbol, e.Record.Price, e.Card.Total, e.RankScore, e.Grade, mos, e.Card.Verdict)
		if e.Fit != nil {
			fmt.Printf("     fit %d (%s): %s\n", e.Fit.Score, e.Fit.Verdict, strings.Join(e.Fit.Details, "  "))
		}
	}
}

func runHistory(cmd *cobra.Command, _ []string) error {
	user, _ := cmd.Flags().GetString("user")
	limit, _ := cmd.Flags().GetInt("limit")

	pipeline, _, err := buildPipeline(cmd, logx.NopSink{})
	if err != nil {
		return err
	}

	results, err := pipeline.History(cmd.Context(), user, limit)
	if err != nil {
		return fmt.Errorf("history load failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("No stored results.")
		return nil
	}
	for _, r := range results {
		fmt.Printf("%s  %-10s  %d bytes\n", r.Created.Format(time.RFC3339), r.Kind, len(r.Payload))
	}
	return nil
}
