/**
 * @description
 * This file sets up the HTTP router for the banking service. It defines the
 * API endpoints, associates them with their corresponding handlers, and
 * applies middleware for logging, CORS, and authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for chi.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// BankingRoutes creates and returns a new router for the banking service.
func BankingRoutes(h *BankingHandlers, jwksURL, jwtAudience, jwtIssuer string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(BearerAuthMiddleware(jwksURL, jwtAudience, jwtIssuer))

		// Read-only account surface.
		r.Get("/accounts", h.ListAccountsHandler)
		r.Get("/balance", h.CheckBalanceHandler)
		r.Get("/beneficiaries", h.ListBeneficiariesHandler)
		r.Get("/transfer-modes", h.ListTransferModesHandler)

		// Transfer lifecycle.
		r.Post("/transfers", h.BeginTransferHandler)
		r.Post("/transfers/confirm", h.ConfirmOTPHandler)
		r.Post("/transfers/cancel", h.CancelTransferHandler)

		// Transaction history with server-side pagination sessions.
		r.Get("/history", h.TransactionHistoryHandler)
		r.Post("/history/next", h.HistoryNextPageHandler)
		r.Post("/history/previous", h.HistoryPreviousPageHandler)

		// Entry point for the language-model collaborator.
		r.Post("/tools/invoke", h.ToolInvokeHandler)

		// Reporting.
		r.Get("/metrics/audit", h.AuditMetricsHandler)
	})

	return r
}
