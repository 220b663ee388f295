package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wangyan9981/riskmodeling/internal/clients/alphavantage"
	"github.com/wangyan9981/riskmodeling/internal/modules/history"
)

// PriceClient fetches daily bars for a symbol.
type PriceClient interface {
	GetDailyPrices(ctx context.Context, symbol string) ([]alphavantage.DailyBar, error)
	GetRemainingRequests() int
}

// PriceStore persists daily price rows.
type PriceStore interface {
	UpsertDailyPrices(symbol string, prices []history.DailyPrice) error
}

// SyncPricesJob pulls daily bars for the configured symbols and stores them.
// A symbol that fails to sync is logged and skipped so the rest of the list
// still gets fresh data.
type SyncPricesJob struct {
	client  PriceClient
	store   PriceStore
	symbols []string
	timeout time.Duration
	log     zerolog.Logger
}

// NewSyncPricesJob creates a new price sync job
func NewSyncPricesJob(client PriceClient, store PriceStore, symbols []string, log zerolog.Logger) *SyncPricesJob {
	return &SyncPricesJob{
		client:  client,
		store:   store,
		symbols: symbols,
		timeout: 2 * time.Minute,
		log:     log.With().Str("job", "sync_prices").Logger(),
	}
}

// Name returns the job name
func (j *SyncPricesJob) Name() string {
	return "sync_prices"
}

// Run fetches and stores daily prices for every configured symbol.
func (j *SyncPricesJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	synced := 0
	for _, symbol := range j.symbols {
		if j.client.GetRemainingRequests() <= 0 {
			j.log.Warn().
				Int("synced", synced).
				Int("total", len(j.symbols)).
				Msg("Daily request budget exhausted, stopping sync")
			break
		}

		bars, err := j.client.GetDailyPrices(ctx, symbol)
		if err != nil {
			j.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch prices")
			continue
		}

		prices := make([]history.DailyPrice, len(bars))
		for i, bar := range bars {
			volume := bar.Volume
			prices[i] = history.DailyPrice{
				Date:   bar.Date,
				Open:   bar.Open,
				High:   bar.High,
				Low:    bar.Low,
				Close:  bar.Close,
				Volume: &volume,
			}
		}

		if err := j.store.UpsertDailyPrices(symbol, prices); err != nil {
			j.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to store prices")
			continue
		}

		j.log.Info().Str("symbol", symbol).Int("bars", len(prices)).Msg("Synced prices")
		synced++
	}

	return nil
}
