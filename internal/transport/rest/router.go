package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/donation-checkout/api"
	"github.com/frahmantamala/donation-checkout/internal/auth"
	"github.com/frahmantamala/donation-checkout/internal/checkout"
	"github.com/frahmantamala/donation-checkout/internal/donationapi"
	"github.com/frahmantamala/donation-checkout/internal/history"
	"github.com/frahmantamala/donation-checkout/internal/paymentgateway"
	"github.com/frahmantamala/donation-checkout/internal/transport/middleware"
	"github.com/frahmantamala/donation-checkout/internal/transport/swagger"
)

type Handlers struct {
	Auth        *auth.Middleware
	Checkout    *checkout.Handler
	Webhook     *paymentgateway.WebhookHandler
	DonationAPI *donationapi.Handler
	History     *history.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, handlers Handlers, allowedOrigins string, logger *slog.Logger) {
	checks := []HealthCheck{DatabaseCheck("receipts_db", db)}
	if handlers.Webhook != nil {
		checks = append(checks, PendingCheckoutsCheck("payment_gateway", handlers.Webhook.PendingCheckouts))
	}
	healthHandler := NewHealthHandler(checks...)

	// Apply global middleware
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// OpenAPI document and Swagger UI live outside the API prefix
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.OpenAPISpec)
	})
	router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// The hosted checkout page posts here; the signature authenticates it.
		if handlers.Webhook != nil {
			r.Post("/payment/callback", handlers.Webhook.HandlePaymentCallback)
		}

		r.Group(func(pr chi.Router) {
			pr.Use(handlers.Auth.Authenticate)

			if handlers.Checkout != nil {
				pr.Route("/checkout/sessions", func(sr chi.Router) {
					sr.Post("/", handlers.Checkout.CreateSession)
					sr.Get("/{id}", handlers.Checkout.GetSession)
					sr.Delete("/{id}", handlers.Checkout.DeleteSession)
					sr.Put("/{id}/form", handlers.Checkout.UpdateForm)
					sr.Post("/{id}/next", handlers.Checkout.Next)
					sr.Post("/{id}/previous", handlers.Checkout.Previous)
					sr.Post("/{id}/submit", handlers.Checkout.Submit)
					sr.Post("/{id}/reset", handlers.Checkout.Reset)
				})
			}

			if handlers.DonationAPI != nil {
				pr.Route("/campaigns", func(cr chi.Router) {
					cr.Get("/", handlers.DonationAPI.ListCampaigns)
					cr.Post("/", handlers.DonationAPI.CreateCampaign)
					cr.Get("/{id}", handlers.DonationAPI.GetCampaign)
					cr.Put("/{id}", handlers.DonationAPI.UpdateCampaign)
					cr.Delete("/{id}", handlers.DonationAPI.DeleteCampaign)
				})
				pr.Get("/funds", handlers.DonationAPI.ListFunds)
				pr.Get("/donations/mine", handlers.DonationAPI.GetMyDonations)
			}

			if handlers.History != nil {
				pr.Get("/donations/history", handlers.History.ListHistory)
			}
		})
	})
}
