package history

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/wangyan9981/riskmodeling/internal/modules/risk"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	h := New(conn, zerolog.Nop())
	require.NoError(t, h.Migrate())
	return h
}

func seedPrices(t *testing.T, h *DB, symbol string, closes map[string]float64) {
	t.Helper()

	prices := make([]DailyPrice, 0, len(closes))
	for date, close := range closes {
		prices = append(prices, DailyPrice{
			Date:  date,
			Open:  close,
			High:  close + 1,
			Low:   close - 1,
			Close: close,
		})
	}
	require.NoError(t, h.UpsertDailyPrices(symbol, prices))
}

func TestGetDailyPricesOrdering(t *testing.T) {
	h := setupTestDB(t)
	seedPrices(t, h, "AAPL", map[string]float64{
		"2024-01-02": 150,
		"2024-01-03": 153,
		"2024-01-04": 149,
	})

	prices, err := h.GetDailyPrices("AAPL", 10)
	require.NoError(t, err)
	require.Len(t, prices, 3)

	assert.Equal(t, "2024-01-04", prices[0].Date, "most recent first")
	assert.Equal(t, 149.0, prices[0].Close)
	assert.Equal(t, "2024-01-02", prices[2].Date)
}

func TestGetDailyPricesLimit(t *testing.T) {
	h := setupTestDB(t)
	seedPrices(t, h, "AAPL", map[string]float64{
		"2024-01-02": 150,
		"2024-01-03": 153,
		"2024-01-04": 149,
	})

	prices, err := h.GetDailyPrices("AAPL", 2)
	require.NoError(t, err)
	assert.Len(t, prices, 2)
	assert.Equal(t, "2024-01-04", prices[0].Date)
}

func TestUpsertReplacesExistingRow(t *testing.T) {
	h := setupTestDB(t)

	require.NoError(t, h.UpsertDailyPrice("MSFT", DailyPrice{Date: "2024-01-02", Open: 1, High: 2, Low: 1, Close: 100}))
	require.NoError(t, h.UpsertDailyPrice("MSFT", DailyPrice{Date: "2024-01-02", Open: 1, High: 2, Low: 1, Close: 105}))

	count, err := h.CountPrices("MSFT")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	prices, err := h.GetDailyPrices("MSFT", 1)
	require.NoError(t, err)
	assert.Equal(t, 105.0, prices[0].Close)
}

func TestUpsertRejectsBadDate(t *testing.T) {
	h := setupTestDB(t)
	err := h.UpsertDailyPrice("MSFT", DailyPrice{Date: "02/01/2024", Close: 100})
	assert.Error(t, err)
}

func TestGetReturnSeries(t *testing.T) {
	h := setupTestDB(t)
	seedPrices(t, h, "AAPL", map[string]float64{
		"2024-01-02": 100,
		"2024-01-03": 102,
		"2024-01-04": 99.96,
	})

	series, err := h.GetReturnSeries("AAPL", 10)
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())

	// Chronological: +2% then -2%.
	values := series.Values()
	assert.InDelta(t, 0.02, values[0], 1e-9)
	assert.InDelta(t, -0.02, values[1], 1e-9)
}

func TestGetReturnSeriesInsufficientData(t *testing.T) {
	h := setupTestDB(t)
	seedPrices(t, h, "AAPL", map[string]float64{"2024-01-02": 100})

	_, err := h.GetReturnSeries("AAPL", 10)
	assert.ErrorIs(t, err, risk.ErrInsufficientData)

	_, err = h.GetReturnSeries("UNKNOWN", 10)
	assert.ErrorIs(t, err, risk.ErrInsufficientData)
}
