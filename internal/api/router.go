// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tradesim-ledger/internal/api/handler"
)

// NewRouter sets up and returns a new HTTP router. metricsHandler serves the
// Prometheus registry and may be nil.
func NewRouter(accountHandler *handler.AccountHandler, metricsHandler http.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(handler.DefaultTimeout))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Get("/symbols", accountHandler.ListSymbols)

	// Account ledger routes
	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", accountHandler.CreateAccount)
		r.Post("/{username}/deposit", accountHandler.Deposit)
		r.Post("/{username}/withdraw", accountHandler.Withdraw)
		r.Post("/{username}/buy", accountHandler.Buy)
		r.Post("/{username}/sell", accountHandler.Sell)
		r.Get("/{username}/balance", accountHandler.GetBalance)
		r.Get("/{username}/portfolio", accountHandler.GetPortfolio)
		r.Get("/{username}/transactions", accountHandler.GetTransactionHistory)
		r.Get("/{username}/audit", accountHandler.Audit)
	})

	return r
}
