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
)

func runPortfolio(cmd *cobra.Command, _ []string) error {
	capital, _ := cmd.Flags().GetFloat64("capital")
	riskName, _ := cmd.Flags().GetString("risk")
	user, _ := cmd.Flags().GetString("user")

	profile, err := parseRisk(riskName)
	if err != nil {
		return err
	}

	pipeline, _, err := buildPipeline(cmd, logx.NewLogSink())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	log.Info().Float64("capital", capital).Str("risk", riskName).Msg("building portfolio")
	out, err := pipeline.RunPortfolio(ctx, user, capital, profile)
	if err != nil {
		return fmt.Errorf("portfolio build failed: %w", err)
	}

	fmt.Printf("Method: %s\n\n", out.Allocation.Method)
	fmt.Printf("%-10s %-12s %8s %12s\n", "SYMBOL", "TIER", "WEIGHT", "AMOUNT")
	for _, sel := range out.Selections {
		w, ok := out.Allocation.Weights[sel.Symbol]
		if !ok {
			continue
		}
		amount := out.Allocation.Amounts[sel.Symbol]
		fmt.Printf("%-10s %-12s %7.2f%% %12s\n", sel.Symbol, sel.Tier, w*100, amount.StringFixed(2))
	}
	return nil
}

func parseRisk(name string) (model.RiskProfile, error) {
	switch strings.ToLower(name) {
	case "conservative":
		return model.RiskConservative, nil
	case "balanced":
		return model.RiskBalanced, nil
	case "aggressive":
		return model.RiskAggressive, nil
	default:
		return "", fmt.Errorf("unknown risk profile %q (conservative|balanced|aggressive)", name)
	}
}

func runDeepDive(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")

	pipeline, _, err := buildPipeline(cmd, logx.NewLogSink())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	report, err := pipeline.RunDeepDive(ctx, user, args)
	if err != nil {
		return fmt.Errorf("deep dive failed: %w", err)
	}

	fmt.Printf("%-10s %8s %10s %8s %8s %8s %-10s\n",
		"SYMBOL", "CAGR%", "MAXDD%", "CONS%", "VOL%", "SHARPE", "TREND")
	for _, st := range report.Stats {
		fmt.Printf("%-10s %8s %10s %8s %8s %8s %-10s\n",
			st.Symbol,
			fmtFloat(st.CAGR, "%.1f"),
			fmtFloat(st.MaxDrawdown, "%.1f"),
			fmtFloat(st.Consistency, "%.0f"),
			fmtFloat(st.Volatility, "%.1f"),
			fmtFloat(st.Sharpe, "%.2f"),
			st.Trend)
	}
	if len(report.Skipped) > 0 {
		fmt.Printf("\nSkipped (insufficient history): %s\n", strings.Join(report.Skipped, ", "))
	}
	return nil
}

func fmtFloat(v model.Float, format string) string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf(format, v.Value)
}
