package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRegisterRoutes tests that every risk route is registered.
func TestRegisterRoutes(t *testing.T) {
	server, _ := setupTestServer(t)

	routes := []string{
		"/api/risk/securities/AAPL/var",
		"/api/risk/securities/AAPL/cvar",
		"/api/risk/securities/AAPL/backtest",
		"/api/risk/securities/AAPL/montecarlo",
		"/api/risk/securities/AAPL/volatility",
	}

	for _, route := range routes {
		t.Run(route, func(t *testing.T) {
			resp, err := http.Get(server.URL + route)
			assert.NoError(t, err)
			defer resp.Body.Close()
			assert.NotEqual(t, http.StatusNotFound, resp.StatusCode)
		})
	}
}

// TestUnknownRoute tests that unregistered paths return 404.
func TestUnknownRoute(t *testing.T) {
	server, _ := setupTestServer(t)

	resp, err := http.Get(server.URL + "/api/risk/portfolio/var")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
