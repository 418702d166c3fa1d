// Package main wires together the connector service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"portal-connector/internal/api"
	"portal-connector/internal/browseruse"
	"portal-connector/internal/config"
	hashsha256 "portal-connector/internal/hash/sha256"
	"portal-connector/internal/logging"
	"portal-connector/internal/metrics"
	"portal-connector/internal/scrape"
	pgstore "portal-connector/internal/store/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Best-effort .env load for local development; real deployments set env
	// vars directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var scraper api.Scraper
	var closeStore func()
	if cfg.ScrapeEnabled() {
		st, err := pgstore.New(ctx, pgstore.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			logger.Fatal("postgres init failed", zap.Error(err))
		}
		closeStore = st.Close

		client := browseruse.New(browseruse.Config{
			BaseURL:      cfg.BrowserUse.BaseURL,
			APIKey:       cfg.BrowserUse.APIKey,
			PollInterval: cfg.PollInterval(),
			PollTimeout:  cfg.PollTimeout(),
		}, nil, logger.Named("browseruse"))

		hasher := hashsha256.New(cfg.Hash.Pepper)
		ingestor := scrape.NewIngestor(st, hasher, logger.Named("ingest"))
		scraper = scrape.NewService(st, client, ingestor, cfg.Hash.Pepper, logger.Named("scrape"))
	} else {
		logger.Warn("scrape capability disabled: datastore or automation credentials not configured")
	}

	apiServer := api.NewServer(scraper, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started",
			zap.Int("port", cfg.Server.Port),
			zap.Bool("scrape_enabled", cfg.ScrapeEnabled()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if closeStore != nil {
		closeStore()
	}
	logger.Info("shutdown complete")
}
