package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/crypash/crypash/internal/config"
	"github.com/crypash/crypash/internal/httpapi"
	"github.com/crypash/crypash/internal/model"
	"github.com/crypash/crypash/internal/telemetry"
)

func runMonitor(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Monitor.Addr
	}

	// The monitor observes; the instrument set registers so /metrics
	// exposes the full family list even before any scan runs.
	telemetry.New(prometheus.DefaultRegisterer)
	sink := httpapi.NewStreamSink()

	server := httpapi.NewServer(addr, sink, httpapi.DefaultMetricsHandler(), version)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down monitor")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	cryptoSpec, _ := cmd.Flags().GetString("crypto-spec")
	equitySpec, _ := cmd.Flags().GetString("equity-spec")
	user, _ := cmd.Flags().GetString("user")

	sink := httpapi.NewStreamSink()
	pipeline, cfg, err := buildPipeline(cmd, sink)
	if err != nil {
		return err
	}

	server := httpapi.NewServer(cfg.Monitor.Addr, sink, httpapi.DefaultMetricsHandler(), version)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("monitor server failed")
		}
	}()

	scheduler := cron.New()
	runClass := func(class model.AssetClass) func() {
		return func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			out, err := pipeline.RunScan(ctx, user, class, "", false)
			if err != nil {
				log.Error().Err(err).Str("class", string(class)).Msg("scheduled scan failed")
				return
			}
			log.Info().Str("class", string(class)).Int("records", len(out.Report.Records)).Msg("scheduled scan complete")
		}
	}

	if _, err := scheduler.AddFunc(cryptoSpec, runClass(model.ClassCrypto)); err != nil {
		return err
	}
	if _, err := scheduler.AddFunc(equitySpec, runClass(model.ClassEquity)); err != nil {
		return err
	}

	log.Info().Str("crypto", cryptoSpec).Str("equity", equitySpec).Msg("scheduler started")
	scheduler.Start()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("stopping scheduler")
	<-scheduler.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
