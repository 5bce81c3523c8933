/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     zap request logging (req_id, status, duration)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Prometheus request counters and latency
  5. CORS:       Cross-origin requests for the planner UI

ROUTE GROUPS:
  /api/items/*          Budget items (income, expense, bank)
  /api/loans/*          Loans, payoff projections, what-if
  /api/clients/*        Client receivables
  /api/months/*         Month events and summaries
  /api/events/*         Payment status and external links
  /api/scenarios/*      Demo households
  /healthz              Store connectivity
  /metrics              Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Logger))
	r.Use(recoverer(h.Logger))
	r.Use(metricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", metricsHandler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Record routes
		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.ListItems)
			r.Post("/", h.CreateItem)
			r.Get("/{id}", h.GetItem)
			r.Post("/{id}/deactivate", h.DeactivateItem)
		})

		r.Route("/loans", func(r chi.Router) {
			r.Get("/", h.ListLoans)
			r.Post("/", h.CreateLoan)
			r.Get("/summary", h.GetPayoffSummary)
			r.Post("/what-if", h.WhatIf)
			r.Get("/{id}", h.GetLoan)
			r.Get("/{id}/projection", h.GetLoanProjection)
			r.Post("/{id}/deactivate", h.DeactivateLoan)
		})

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.CreateClient)
			r.Get("/{id}", h.GetClient)
			r.Post("/{id}/deactivate", h.DeactivateClient)
		})

		// Month routes
		r.Route("/months/{year}/{month}", func(r chi.Router) {
			r.Get("/events", h.GetMonthEvents)
			r.Post("/regenerate", h.RegenerateMonth)
			r.Get("/summary", h.GetMonthSummary)
		})

		// Event routes
		r.Route("/events/{id}", func(r chi.Router) {
			r.Post("/pay", h.PayEvent)
			r.Post("/unpay", h.UnpayEvent)
			r.Put("/link", h.LinkEvent)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
