// Package history provides the daily price store backing the risk
// estimators. Prices are fetched by the market data client and read back as
// cleaned return series.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wangyan9981/riskmodeling/internal/modules/risk"
)

// DB provides access to historical price data
type DB struct {
	db  *sql.DB
	log zerolog.Logger
}

// New creates a new history database accessor
func New(db *sql.DB, log zerolog.Logger) *DB {
	return &DB{
		db:  db,
		log: log.With().Str("component", "history_db").Logger(),
	}
}

// DailyPrice represents a daily OHLCV price point
type DailyPrice struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume *int64  `json:"volume,omitempty"`
}

// Schema is the daily_prices table definition. Dates are stored as Unix
// timestamps so range queries stay integer comparisons.
const Schema = `
CREATE TABLE IF NOT EXISTS daily_prices (
	symbol TEXT NOT NULL,
	date INTEGER NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume INTEGER,
	PRIMARY KEY (symbol, date)
);
CREATE INDEX IF NOT EXISTS idx_daily_prices_symbol_date ON daily_prices(symbol, date DESC);
`

// Migrate creates the price tables if they do not exist.
func (h *DB) Migrate() error {
	if _, err := h.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create daily_prices schema: %w", err)
	}
	return nil
}

// GetDailyPrices fetches up to limit daily prices for a symbol, most recent
// first.
func (h *DB) GetDailyPrices(symbol string, limit int) ([]DailyPrice, error) {
	query := `
		SELECT date, open, high, low, close, volume
		FROM daily_prices
		WHERE symbol = ?
		ORDER BY date DESC
		LIMIT ?
	`

	rows, err := h.db.Query(query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var prices []DailyPrice
	for rows.Next() {
		var p DailyPrice
		var volume sql.NullInt64
		var dateUnix sql.NullInt64

		if err := rows.Scan(&dateUnix, &p.Open, &p.High, &p.Low, &p.Close, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}

		if dateUnix.Valid {
			p.Date = time.Unix(dateUnix.Int64, 0).UTC().Format("2006-01-02")
		}
		if volume.Valid {
			p.Volume = &volume.Int64
		}

		prices = append(prices, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return prices, nil
}

// UpsertDailyPrice stores or replaces one price row. date must be a
// YYYY-MM-DD string.
func (h *DB) UpsertDailyPrice(symbol string, price DailyPrice) error {
	parsed, err := time.Parse("2006-01-02", price.Date)
	if err != nil {
		return fmt.Errorf("invalid price date %q: %w", price.Date, err)
	}

	var volume interface{}
	if price.Volume != nil {
		volume = *price.Volume
	}

	_, err = h.db.Exec(`
		INSERT OR REPLACE INTO daily_prices (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, symbol, parsed.Unix(), price.Open, price.High, price.Low, price.Close, volume)
	if err != nil {
		return fmt.Errorf("failed to upsert daily price for %s: %w", symbol, err)
	}

	return nil
}

// UpsertDailyPrices stores a batch of price rows in one transaction.
func (h *DB) UpsertDailyPrices(symbol string, prices []DailyPrice) error {
	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin price upsert: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO daily_prices (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare price upsert: %w", err)
	}
	defer stmt.Close()

	for _, price := range prices {
		parsed, err := time.Parse("2006-01-02", price.Date)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("invalid price date %q: %w", price.Date, err)
		}

		var volume interface{}
		if price.Volume != nil {
			volume = *price.Volume
		}

		if _, err := stmt.Exec(symbol, parsed.Unix(), price.Open, price.High, price.Low, price.Close, volume); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to upsert daily price for %s: %w", symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price upsert: %w", err)
	}

	h.log.Debug().Str("symbol", symbol).Int("rows", len(prices)).Msg("Stored daily prices")
	return nil
}

// CountPrices returns the number of stored rows for a symbol.
func (h *DB) CountPrices(symbol string) (int, error) {
	var count int
	err := h.db.QueryRow(`SELECT COUNT(*) FROM daily_prices WHERE symbol = ?`, symbol).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count prices for %s: %w", symbol, err)
	}
	return count, nil
}

// GetReturnSeries loads up to limit+1 recent closes for a symbol and converts
// them, oldest to newest, into a cleaned fractional return series of at most
// limit observations.
func (h *DB) GetReturnSeries(symbol string, limit int) (risk.ReturnSeries, error) {
	prices, err := h.GetDailyPrices(symbol, limit+1)
	if err != nil {
		return risk.ReturnSeries{}, err
	}

	// GetDailyPrices returns newest first; returns need chronological order.
	closes := make([]float64, len(prices))
	for i, p := range prices {
		closes[len(prices)-1-i] = p.Close
	}

	series, err := risk.FromPrices(closes)
	if err != nil {
		return risk.ReturnSeries{}, fmt.Errorf("return series for %s: %w", symbol, err)
	}
	return series, nil
}
