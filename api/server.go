/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /api/sales/*       Sale records and billing mutations
  /api/periods/*     Month summaries, commissions, locks
  /api/portfolio/*   Projection and manual clients
  /api/config/*      Rule documents
  /api/sellers/*     Shift mapping
  /api/scenarios/*   Demo scenarios

SECURITY NOTE:
  No authentication middleware. The engine sits behind the dashboard's
  gateway, which owns auth; all endpoints here are network-internal.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Sale routes
		r.Route("/sales", func(r chi.Router) {
			r.Get("/", h.ListSales)
			r.Get("/{id}/valuation", h.GetValuation)
			r.Post("/{id}/approve", h.Approve)
			r.Post("/{id}/unapprove", h.Unapprove)
			r.Post("/{id}/defer", h.Defer)
			r.Put("/{id}/overrides", h.SetOverrides)
		})

		// Period routes
		r.Route("/periods/{period}", func(r chi.Router) {
			r.Get("/summary", h.PeriodSummary)
			r.Get("/commissions", h.PeriodCommissions)
			r.Post("/lock", h.LockPeriod)
			r.Delete("/lock", h.UnlockPeriod)
		})

		// Portfolio routes
		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/", h.GetPortfolio)
			r.Get("/clients", h.ListManualClients)
			r.Post("/clients", h.CreateManualClient)
			r.Delete("/clients/{id}", h.DeleteManualClient)
		})

		// Configuration routes
		r.Route("/config", func(r chi.Router) {
			r.Get("/rules", h.GetRuleConfig)
			r.Put("/rules", h.PutRuleConfig)
			r.Get("/commissions", h.GetCommissionRules)
			r.Put("/commissions", h.PutCommissionRules)
		})

		// Seller routes
		r.Route("/sellers", func(r chi.Router) {
			r.Get("/shifts", h.GetSellerShifts)
			r.Put("/{id}/shift", h.PutSellerShift)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
