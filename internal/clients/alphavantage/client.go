// Package alphavantage provides daily price fetching from the Alpha Vantage
// API. The client enforces the free-tier rate limit of 25 requests per day.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const dailyRequestLimit = 25

// ErrRateLimitExceeded is returned when the daily request budget is spent.
type ErrRateLimitExceeded struct{}

func (e ErrRateLimitExceeded) Error() string {
	return fmt.Sprintf("alphavantage rate limit of %d requests per day exceeded", dailyRequestLimit)
}

// DailyBar is one day of OHLCV data for a symbol.
type DailyBar struct {
	Date   string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Client fetches daily price series from Alpha Vantage.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     zerolog.Logger

	mu            sync.Mutex
	requestsToday int
	counterDay    string
}

// NewClient creates a new Alpha Vantage client.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: "https://www.alphavantage.co/query",
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("client", "alphavantage").Logger(),
	}
}

// SetBaseURL overrides the API endpoint (used in tests).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// GetRemainingRequests returns how many requests are left in today's budget.
func (c *Client) GetRemainingRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollCounterLocked()
	return dailyRequestLimit - c.requestsToday
}

// ResetDailyCounter clears the request counter. Exposed for operational
// overrides; the counter also rolls automatically at UTC midnight.
func (c *Client) ResetDailyCounter() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestsToday = 0
	c.counterDay = time.Now().UTC().Format("2006-01-02")
}

// checkRateLimit consumes one request from the daily budget.
func (c *Client) checkRateLimit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rollCounterLocked()
	if c.requestsToday >= dailyRequestLimit {
		return ErrRateLimitExceeded{}
	}
	c.requestsToday++
	return nil
}

// rollCounterLocked resets the counter when the UTC day has changed.
// Caller must hold mu.
func (c *Client) rollCounterLocked() {
	today := time.Now().UTC().Format("2006-01-02")
	if c.counterDay != today {
		c.counterDay = today
		c.requestsToday = 0
	}
}

// GetDailyPrices fetches the most recent daily bars for a symbol, oldest
// first. Alpha Vantage's compact output covers roughly the last 100 trading
// days, which is enough to keep a rolling risk window fresh.
func (c *Client) GetDailyPrices(ctx context.Context, symbol string) ([]DailyBar, error) {
	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("outputsize", "compact")
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	c.log.Debug().Str("symbol", symbol).Msg("Fetching daily prices")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var payload struct {
		ErrorMessage string                       `json:"Error Message"`
		Note         string                       `json:"Note"`
		Series       map[string]map[string]string `json:"Time Series (Daily)"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse API response: %w", err)
	}

	if payload.ErrorMessage != "" {
		return nil, fmt.Errorf("API error for %s: %s", symbol, payload.ErrorMessage)
	}
	if payload.Note != "" {
		// Alpha Vantage reports server-side throttling in a "Note" field.
		return nil, fmt.Errorf("API throttled request for %s: %s", symbol, payload.Note)
	}
	if len(payload.Series) == 0 {
		return nil, fmt.Errorf("no price data returned for %s", symbol)
	}

	bars := make([]DailyBar, 0, len(payload.Series))
	for date, fields := range payload.Series {
		bar, err := parseBar(date, fields)
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Str("date", date).Msg("Skipping malformed bar")
			continue
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })
	return bars, nil
}

func parseBar(date string, fields map[string]string) (DailyBar, error) {
	bar := DailyBar{Date: date}

	var err error
	if bar.Open, err = strconv.ParseFloat(fields["1. open"], 64); err != nil {
		return bar, fmt.Errorf("bad open: %w", err)
	}
	if bar.High, err = strconv.ParseFloat(fields["2. high"], 64); err != nil {
		return bar, fmt.Errorf("bad high: %w", err)
	}
	if bar.Low, err = strconv.ParseFloat(fields["3. low"], 64); err != nil {
		return bar, fmt.Errorf("bad low: %w", err)
	}
	if bar.Close, err = strconv.ParseFloat(fields["4. close"], 64); err != nil {
		return bar, fmt.Errorf("bad close: %w", err)
	}
	if bar.Volume, err = strconv.ParseInt(fields["5. volume"], 10, 64); err != nil {
		return bar, fmt.Errorf("bad volume: %w", err)
	}

	return bar, nil
}
