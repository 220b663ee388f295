// Package handlers provides HTTP handlers for risk metrics operations.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/wangyan9981/riskmodeling/internal/modules/calculations"
	"github.com/wangyan9981/riskmodeling/internal/modules/history"
	"github.com/wangyan9981/riskmodeling/internal/modules/risk"
	"github.com/wangyan9981/riskmodeling/pkg/formulas"
)

// CacheTTL is how long computed risk metrics stay fresh. Daily bars only
// change once per day, but a shorter TTL keeps manual resyncs visible.
const CacheTTL = 15 * time.Minute

const (
	defaultConfidence  = 0.95
	defaultWindow      = 252
	defaultHorizonDays = 10
	defaultNumPaths    = 10000
	defaultMCValue     = 100000.0
)

// Handler handles risk metrics HTTP requests
type Handler struct {
	historyDB *history.DB
	cache     *calculations.Cache
	log       zerolog.Logger
}

// NewHandler creates a new risk metrics handler. The cache is optional; a nil
// cache disables memoization.
func NewHandler(historyDB *history.DB, cache *calculations.Cache, log zerolog.Logger) *Handler {
	return &Handler{
		historyDB: historyDB,
		cache:     cache,
		log:       log.With().Str("handler", "risk").Logger(),
	}
}

// VaRResult is the payload for the VaR endpoint.
type VaRResult struct {
	Symbol       string  `json:"symbol" msgpack:"symbol"`
	VaR          float64 `json:"var" msgpack:"var"`
	Confidence   float64 `json:"confidence" msgpack:"confidence"`
	Method       string  `json:"method" msgpack:"method"`
	Window       int     `json:"window" msgpack:"window"`
	Observations int     `json:"observations" msgpack:"observations"`
}

// CVaRResult is the payload for the CVaR endpoint.
type CVaRResult struct {
	Symbol       string  `json:"symbol" msgpack:"symbol"`
	CVaR         float64 `json:"cvar" msgpack:"cvar"`
	VaR          float64 `json:"var" msgpack:"var"`
	Confidence   float64 `json:"confidence" msgpack:"confidence"`
	Window       int     `json:"window" msgpack:"window"`
	Observations int     `json:"observations" msgpack:"observations"`
}

// BacktestResult is the payload for the Kupiec backtest endpoint.
type BacktestResult struct {
	Symbol  string               `json:"symbol" msgpack:"symbol"`
	VaR     float64              `json:"var" msgpack:"var"`
	Method  string               `json:"method" msgpack:"method"`
	Window  int                  `json:"window" msgpack:"window"`
	Outcome risk.BacktestOutcome `json:"outcome" msgpack:"outcome"`
}

// VolatilityResult is the payload for the volatility endpoint.
type VolatilityResult struct {
	Symbol               string  `json:"symbol" msgpack:"symbol"`
	AnnualizedVolatility float64 `json:"annualized_volatility" msgpack:"annualized_volatility"`
	DailyVolatility      float64 `json:"daily_volatility" msgpack:"daily_volatility"`
	Window               int     `json:"window" msgpack:"window"`
	Observations         int     `json:"observations" msgpack:"observations"`
}

// HandleGetVaR handles GET /api/risk/securities/{symbol}/var
func (h *Handler) HandleGetVaR(w http.ResponseWriter, r *http.Request, symbol string) {
	confidence, err := queryFloat(r, "confidence", defaultConfidence)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	window, err := queryInt(r, "window", defaultWindow)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	method, err := risk.ParseMethod(queryString(r, "method", "historical"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cacheKey := fmt.Sprintf("var:%s:%g:%s:%d", symbol, confidence, method, window)
	var cached VaRResult
	if h.cacheGet(r, cacheKey, &cached) {
		h.writeData(w, cached)
		return
	}

	series, err := h.historyDB.GetReturnSeries(symbol, window)
	if err != nil {
		h.writeRiskError(w, symbol, err)
		return
	}

	estimate, err := risk.VaR(series, confidence, method)
	if err != nil {
		h.writeRiskError(w, symbol, err)
		return
	}

	result := VaRResult{
		Symbol:       symbol,
		VaR:          estimate,
		Confidence:   confidence,
		Method:       method.String(),
		Window:       window,
		Observations: series.Len(),
	}
	h.cachePut(cacheKey, result)
	h.writeData(w, result)
}

// HandleGetCVaR handles GET /api/risk/securities/{symbol}/cvar
func (h *Handler) HandleGetCVaR(w http.ResponseWriter, r *http.Request, symbol string) {
	confidence, err := queryFloat(r, "confidence", defaultConfidence)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	window, err := queryInt(r, "window", defaultWindow)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cacheKey := fmt.Sprintf("cvar:%s:%g:%d", symbol, confidence, window)
	var cached CVaRResult
	if h.cacheGet(r, cacheKey, &cached) {
		h.writeData(w, cached)
		return
	}

	series, err := h.historyDB.GetReturnSeries(symbol, window)
	if err != nil {
		h.writeRiskError(w, symbol, err)
		return
	}

	cvar, err := risk.CVaR(series, confidence)
	if err != nil {
		h.writeRiskError(w, symbol, err)
		return
	}
	varEstimate, err := risk.VaR(series, confidence, risk.MethodHistorical)
	if err != nil {
		h.writeRiskError(w, symbol, err)
		return
	}

	result := CVaRResult{
		Symbol:       symbol,
		CVaR:         cvar,
		VaR:          varEstimate,
		Confidence:   confidence,
		Window:       window,
		Observations: series.Len(),
	}
	h.cachePut(cacheKey, result)
	h.writeData(w, result)
}

// HandleGetBacktest handles GET /api/risk/securities/{symbol}/backtest
func (h *Handler) HandleGetBacktest(w http.ResponseWriter, r *http.Request, symbol string) {
	confidence, err := queryFloat(r, "confidence", defaultConfidence)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	window, err := queryInt(r, "window", defaultWindow)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	critical, err := queryFloat(r, "critical", 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	method, err := risk.ParseMethod(queryString(r, "method", "historical"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cacheKey := fmt.Sprintf("backtest:%s:%g:%s:%d:%g", symbol, confidence, method, window, critical)
	var cached BacktestResult
	if h.cacheGet(r, cacheKey, &cached) {
		h.writeData(w, cached)
		return
	}

	series, err := h.historyDB.GetReturnSeries(symbol, window)
	if err != nil {
		h.writeRiskError(w, symbol, err)
		return
	}

	estimate, err := risk.VaR(series, confidence, method)
	if err != nil {
		h.writeRiskError(w, symbol, err)
		return
	}
	outcome, err := risk.KupiecTest(series, estimate, confidence, critical)
	if err != nil {
		h.writeRiskError(w, symbol, err)
		return
	}

	result := BacktestResult{
		Symbol:  symbol,
		VaR:     estimate,
		Method:  method.String(),
		Window:  window,
		Outcome: outcome,
	}
	h.cachePut(cacheKey, result)
	h.writeData(w, result)
}

// HandleGetMonteCarlo handles GET /api/risk/securities/{symbol}/montecarlo
//
// Results are not cached: each run carries a fresh run ID, and reproducibility
// is the caller's concern via the seed parameter.
func (h *Handler) HandleGetMonteCarlo(w http.ResponseWriter, r *http.Request, symbol string) {
	confidence, err := queryFloat(r, "confidence", defaultConfidence)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	window, err := queryInt(r, "window", defaultWindow)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	initialValue, err := queryFloat(r, "value", defaultMCValue)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	horizon, err := queryInt(r, "horizon", defaultHorizonDays)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	paths, err := queryInt(r, "paths", defaultNumPaths)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	seed, err := queryInt(r, "seed", 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := h.historyDB.GetReturnSeries(symbol, window)
	if err != nil {
		h.writeRiskError(w, symbol, err)
		return
	}

	sim := risk.NewMonteCarloSimulator(risk.MonteCarloConfig{
		NumPaths:    paths,
		HorizonDays: horizon,
		Confidence:  confidence,
		Seed:        int64(seed),
	})
	result, err := sim.Simulate(series, initialValue)
	if err != nil {
		h.writeRiskError(w, symbol, err)
		return
	}

	h.writeData(w, map[string]interface{}{
		"symbol":     symbol,
		"window":     window,
		"simulation": result,
	})
}

// HandleGetVolatility handles GET /api/risk/securities/{symbol}/volatility
func (h *Handler) HandleGetVolatility(w http.ResponseWriter, r *http.Request, symbol string) {
	window, err := queryInt(r, "window", defaultWindow)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cacheKey := fmt.Sprintf("volatility:%s:%d", symbol, window)
	var cached VolatilityResult
	if h.cacheGet(r, cacheKey, &cached) {
		h.writeData(w, cached)
		return
	}

	series, err := h.historyDB.GetReturnSeries(symbol, window)
	if err != nil {
		h.writeRiskError(w, symbol, err)
		return
	}

	result := VolatilityResult{
		Symbol:               symbol,
		AnnualizedVolatility: formulas.AnnualizedVolatility(series.Values()),
		DailyVolatility:      series.StdDev(),
		Window:               window,
		Observations:         series.Len(),
	}
	h.cachePut(cacheKey, result)
	h.writeData(w, result)
}

// cacheGet returns true when the cache holds a fresh entry and the request
// did not ask for a bypass with fresh=1.
func (h *Handler) cacheGet(r *http.Request, key string, out interface{}) bool {
	if h.cache == nil || r.URL.Query().Get("fresh") == "1" {
		return false
	}
	hit, err := h.cache.Get(key, out)
	if err != nil {
		h.log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		return false
	}
	return hit
}

func (h *Handler) cachePut(key string, value interface{}) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Store(key, value, CacheTTL); err != nil {
		h.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

// writeRiskError maps engine errors onto HTTP status codes.
func (h *Handler) writeRiskError(w http.ResponseWriter, symbol string, err error) {
	switch {
	case errors.Is(err, risk.ErrInvalidParameter), errors.Is(err, risk.ErrInvalidMethod):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, risk.ErrInsufficientData):
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("not enough history for %s: %v", symbol, err))
	case errors.Is(err, risk.ErrNumericDomain):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Risk calculation failed")
		h.writeError(w, http.StatusInternalServerError, "risk calculation failed")
	}
}

func queryString(r *http.Request, name, fallback string) string {
	if v := r.URL.Query().Get(name); v != "" {
		return v
	}
	return fallback
}

func queryFloat(r *http.Request, name string, fallback float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter: %q", name, raw)
	}
	return v, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter: %q", name, raw)
	}
	return v, nil
}

// writeData wraps a payload in the standard response envelope.
func (h *Handler) writeData(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": message,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
