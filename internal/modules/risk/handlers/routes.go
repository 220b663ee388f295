package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all risk metrics routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/risk", func(r chi.Router) {
		r.Route("/securities/{symbol}", func(r chi.Router) {
			r.Get("/var", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetVaR(w, r, chi.URLParam(r, "symbol"))
			})
			r.Get("/cvar", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetCVaR(w, r, chi.URLParam(r, "symbol"))
			})
			r.Get("/backtest", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetBacktest(w, r, chi.URLParam(r, "symbol"))
			})
			r.Get("/montecarlo", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetMonteCarlo(w, r, chi.URLParam(r, "symbol"))
			})
			r.Get("/volatility", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetVolatility(w, r, chi.URLParam(r, "symbol"))
			})
		})
	})
}
