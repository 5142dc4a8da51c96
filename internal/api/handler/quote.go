package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/simbok/delivery/internal/api/middleware"
	"github.com/simbok/delivery/internal/api/models"
	"github.com/simbok/delivery/internal/api/response"
	"github.com/simbok/delivery/internal/delivery"
	"github.com/simbok/delivery/internal/pricing"
	"github.com/simbok/delivery/pkg/geo"
)

// QuoteService prices deliveries. *delivery.Service implements it.
type QuoteService interface {
	Quote(ctx context.Context, req delivery.QuoteRequest) (*pricing.Quote, error)
	QuoteDistance(ctx context.Context, req delivery.DistanceQuoteRequest) (*pricing.Quote, error)
}

// QuoteHandlerConfig configures a QuoteHandler.
type QuoteHandlerConfig struct {
	Quotes QuoteService
	// Tariff and Profile are what GET /v1/pricing/config reports.
	Tariff  pricing.Config
	Profile string
	Logger  zerolog.Logger
	Now     func() time.Time
}

// QuoteHandler handles quote and pricing endpoints.
type QuoteHandler struct {
	quotes  QuoteService
	tariff  pricing.Config
	profile string
	logger  zerolog.Logger
	now     func() time.Time
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(cfg QuoteHandlerConfig) *QuoteHandler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &QuoteHandler{
		quotes:  cfg.Quotes,
		tariff:  cfg.Tariff,
		profile: cfg.Profile,
		logger:  cfg.Logger,
		now:     now,
	}
}

// CreateQuote handles POST /v1/quotes.
func (h *QuoteHandler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var body models.QuoteRequest
	if !decode(w, r, &body) {
		return
	}

	quote, err := h.quotes.Quote(r.Context(), delivery.QuoteRequest{
		Origin:          geo.Point{Lat: *body.OriginLat, Lng: *body.OriginLng},
		Destination:     geo.Point{Lat: *body.DestLat, Lng: *body.DestLng},
		VehicleType:     body.VehicleType,
		IsRaining:       body.IsRaining,
		RoutePreference: body.RoutePreference,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.OK(w, r, models.NewQuoteResponse(quote, h.now()))
}

// CreateDistanceQuote handles POST /v1/quotes:distance.
func (h *QuoteHandler) CreateDistanceQuote(w http.ResponseWriter, r *http.Request) {
	var body models.DistanceQuoteRequest
	if !decode(w, r, &body) {
		return
	}

	quote, err := h.quotes.QuoteDistance(r.Context(), delivery.DistanceQuoteRequest{
		DistanceKm:      *body.DistanceKm,
		DurationMinutes: body.DurationMinutes,
		VehicleType:     body.VehicleType,
		IsRaining:       body.IsRaining,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.OK(w, r, models.NewQuoteResponse(quote, h.now()))
}

// GetPricingConfig handles GET /v1/pricing/config.
func (h *QuoteHandler) GetPricingConfig(w http.ResponseWriter, r *http.Request) {
	response.OK(w, r, models.PricingConfigResponse{
		Success: true,
		Profile: h.profile,
		Config:  h.tariff,
	})
}

func (h *QuoteHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn().Err(err).
		Str("request_id", middleware.GetRequestID(r.Context())).
		Str("path", r.URL.Path).
		Msg("quote rejected")
	response.FromError(w, r, err)
}
