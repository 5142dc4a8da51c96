// Package api provides the HTTP API for the SIMBOK delivery quote service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/simbok/delivery/internal/api/handler"
	"github.com/simbok/delivery/internal/api/middleware"
	"github.com/simbok/delivery/internal/api/models"
	"github.com/simbok/delivery/internal/pricing"
	"github.com/simbok/delivery/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger
	Metrics   *middleware.Metrics

	QuoteService handler.QuoteService
	// Tariff and PricingProfile are reported by GET /v1/pricing/config.
	Tariff         pricing.Config
	PricingProfile string

	// GeocodeService may be nil; geocoding routes then answer 404.
	GeocodeService handler.GeocodeService
	OTPService     handler.OTPService

	// Resolver is the active route resolver name shown on the status endpoint.
	Resolver string
	Registry *resilience.Registry
	Checks   []handler.DependencyCheck

	// RateLimit is requests per minute per client IP on quote and geocode routes.
	// Zero disables limiting.
	RateLimit  int
	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID) // Generate/propagate request ID first
	r.Use(middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.RequireJSON)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		models.NewNotFound(middleware.GetRequestID(req.Context()), "No route matches "+req.URL.Path).
			WithInstance(req.URL.Path).
			Write(w)
	})

	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Resolver:  cfg.Resolver,
		Registry:  cfg.Registry,
		Checks:    cfg.Checks,
	})
	quoteHandler := handler.NewQuoteHandler(handler.QuoteHandlerConfig{
		Quotes:  cfg.QuoteService,
		Tariff:  cfg.Tariff,
		Profile: cfg.PricingProfile,
		Logger:  cfg.Logger,
	})
	geocodeHandler := handler.NewGeocodeHandler(cfg.GeocodeService)

	quoteRateLimit := middleware.RateLimitByIP(middleware.PerMinute(cfg.RateLimit))
	otpRateLimit := middleware.RateLimitByIP(middleware.OTPRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(quoteRateLimit)
			r.Post("/quotes", quoteHandler.CreateQuote)
			r.Post("/quotes:distance", quoteHandler.CreateDistanceQuote)
			r.Post("/geocode", geocodeHandler.Search)
			r.Post("/geocode:reverse", geocodeHandler.Reverse)
		})

		r.Get("/pricing/config", quoteHandler.GetPricingConfig)

		// OTP routes only exist when a code service is wired.
		if cfg.OTPService != nil {
			otpHandler := handler.NewOTPHandler(cfg.OTPService)
			r.Group(func(r chi.Router) {
				r.Use(otpRateLimit)
				r.Post("/otp:send", otpHandler.Send)
				r.Post("/otp:verify", otpHandler.Verify)
			})
		}
	})

	return r
}
