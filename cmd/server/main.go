// Package main is the entry point for the risk modeling service. The server
// keeps a local store of daily prices, syncs it from Alpha Vantage on a cron
// schedule, and answers VaR, CVaR, backtest, and Monte Carlo queries over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/wangyan9981/riskmodeling/internal/clients/alphavantage"
	"github.com/wangyan9981/riskmodeling/internal/config"
	"github.com/wangyan9981/riskmodeling/internal/database"
	"github.com/wangyan9981/riskmodeling/internal/modules/calculations"
	"github.com/wangyan9981/riskmodeling/internal/modules/history"
	"github.com/wangyan9981/riskmodeling/internal/scheduler"
	"github.com/wangyan9981/riskmodeling/internal/server"
	"github.com/wangyan9981/riskmodeling/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Strs("symbols", cfg.Symbols).
		Msg("Starting risk modeling service")

	// Persistent price history and the ephemeral calculation cache live in
	// separate databases so cache churn never touches price data.
	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	hist := history.New(historyDB.Conn(), log)
	if err := hist.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate history database")
	}

	cache := calculations.NewCache(cacheDB.Conn())
	if err := cache.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate cache database")
	}

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		HistoryDB: historyDB,
		CacheDB:   cacheDB,
		History:   hist,
		Cache:     cache,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
	})

	sched := scheduler.New(log)

	if len(cfg.Symbols) > 0 {
		client := alphavantage.NewClient(cfg.AlphaVantageAPIKey, log)
		syncJob := scheduler.NewSyncPricesJob(client, hist, cfg.Symbols, log)

		if err := sched.AddJob(cfg.SyncSchedule, syncJob); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.SyncSchedule).Msg("Failed to register sync job")
		}
		srv.SetSyncJob(syncJob)

		// First sync on startup when the store is empty.
		if count, err := hist.CountPrices(cfg.Symbols[0]); err == nil && count == 0 {
			go func() {
				if err := sched.RunNow(syncJob); err != nil {
					log.Error().Err(err).Msg("Initial price sync failed")
				}
			}()
		}
	} else {
		log.Warn().Msg("No symbols configured, price sync disabled")
	}

	purgeJob := scheduler.NewPurgeCacheJob(cache, log)
	if err := sched.AddJob("@hourly", purgeJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache purge job")
	}

	sched.Start()
	defer sched.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}
