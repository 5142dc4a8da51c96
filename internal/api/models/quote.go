package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/simbok/delivery/internal/pricing"
)

// QuoteRequest is the body of POST /v1/quotes.
type QuoteRequest struct {
	OriginLat       *float64 `json:"origin_lat"`
	OriginLng       *float64 `json:"origin_lng"`
	DestLat         *float64 `json:"dest_lat"`
	DestLng         *float64 `json:"dest_lng"`
	VehicleType     string   `json:"vehicle_type"`
	IsRaining       bool     `json:"is_raining"`
	RoutePreference string   `json:"route_preference,omitempty"`
}

// Validate reports missing and out of range coordinates.
func (r *QuoteRequest) Validate() []FieldError {
	var errs []FieldError
	errs = requireCoordinate(errs, "origin_lat", r.OriginLat, 90)
	errs = requireCoordinate(errs, "origin_lng", r.OriginLng, 180)
	errs = requireCoordinate(errs, "dest_lat", r.DestLat, 90)
	errs = requireCoordinate(errs, "dest_lng", r.DestLng, 180)
	return errs
}

// DistanceQuoteRequest is the body of POST /v1/quotes:distance.
// DistanceKm accepts a JSON number or a decimal string.
type DistanceQuoteRequest struct {
	DistanceKm      *decimal.Decimal `json:"distance_km"`
	DurationMinutes int              `json:"duration_minutes"`
	VehicleType     string           `json:"vehicle_type"`
	IsRaining       bool             `json:"is_raining"`
}

// Validate reports a missing distance.
func (r *DistanceQuoteRequest) Validate() []FieldError {
	if r.DistanceKm == nil {
		return []FieldError{{Field: "distance_km", Message: "is required", Code: CodeRequired}}
	}
	return nil
}

// QuoteResponse is an itemized quote. Money fields are whole rupiah.
type QuoteResponse struct {
	Success             bool                  `json:"success"`
	DistanceKm          float64               `json:"distance_km"`
	DistanceMeters      int                   `json:"distance_meters"`
	DurationMinutes     int                   `json:"duration_minutes"`
	VehicleType         string                `json:"vehicle_type"`
	VehicleMultiplier   float64               `json:"vehicle_multiplier"`
	BasePrice           int64                 `json:"base_price"`
	TierRange           string                `json:"tier_range"`
	RatePerKm           int64                 `json:"rate_per_km"`
	DistanceCharge      int64                 `json:"distance_charge"`
	Subtotal            int64                 `json:"subtotal"`
	SurgeMultiplier     float64               `json:"surge_multiplier"`
	SurgeReasons        []string              `json:"surge_reasons"`
	PriceWithSurge      int64                 `json:"price_with_surge"`
	PlatformFeePercent  float64               `json:"platform_fee_percent"`
	PlatformFee         int64                 `json:"platform_fee"`
	MinChargeApplied    bool                  `json:"min_charge_applied"`
	FinalPrice          int64                 `json:"final_price"`
	FinalPriceFormatted string                `json:"final_price_formatted"`
	Method              string                `json:"method,omitempty"`
	Approximate         bool                  `json:"approximate,omitempty"`
	RouteCoordinates    [][2]float64          `json:"route_coordinates,omitempty"`
	RoadNames           []string              `json:"road_names,omitempty"`
	TotalRoads          int                   `json:"total_roads,omitempty"`
	Alternatives        []AlternativeResponse `json:"alternatives,omitempty"`
	QuotedAt            Timestamp             `json:"quoted_at"`
}

// AlternativeResponse is a route the quote was not priced on.
type AlternativeResponse struct {
	RouteNumber     int     `json:"route_number"`
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes int     `json:"duration_minutes"`
	TimeDiffMinutes int     `json:"time_diff_minutes"`
	DistanceDiffKm  float64 `json:"distance_diff_km"`
}

// NewQuoteResponse flattens a quote for the wire.
func NewQuoteResponse(q *pricing.Quote, quotedAt time.Time) QuoteResponse {
	resp := QuoteResponse{
		Success:             true,
		DistanceKm:          q.DistanceKm.InexactFloat64(),
		DistanceMeters:      q.DistanceMeters,
		DurationMinutes:     q.DurationMinutes,
		VehicleType:         string(q.VehicleType),
		VehicleMultiplier:   q.VehicleMultiplier.InexactFloat64(),
		BasePrice:           q.BasePrice,
		TierRange:           q.TierRange,
		RatePerKm:           q.RatePerKm,
		DistanceCharge:      q.DistanceCharge,
		Subtotal:            q.Subtotal,
		SurgeMultiplier:     q.SurgeMultiplier.InexactFloat64(),
		SurgeReasons:        q.SurgeReasons,
		PriceWithSurge:      q.PriceWithSurge,
		PlatformFeePercent:  q.PlatformFeePercent.InexactFloat64(),
		PlatformFee:         q.PlatformFee,
		MinChargeApplied:    q.MinChargeApplied,
		FinalPrice:          q.FinalPrice,
		FinalPriceFormatted: pricing.FormatRupiah(q.FinalPrice),
		QuotedAt:            Timestamp(quotedAt),
	}
	if resp.SurgeReasons == nil {
		resp.SurgeReasons = []string{}
	}

	if r := q.Route; r != nil {
		resp.Method = r.Method
		resp.Approximate = r.Approximate
		resp.RoadNames = r.RoadNames
		resp.TotalRoads = r.TotalRoads
		for _, p := range r.Geometry {
			resp.RouteCoordinates = append(resp.RouteCoordinates, [2]float64{p.Lat, p.Lng})
		}
		for _, alt := range r.Alternatives {
			resp.Alternatives = append(resp.Alternatives, AlternativeResponse{
				RouteNumber:     alt.RouteNumber,
				DistanceKm:      alt.DistanceKm.InexactFloat64(),
				DurationMinutes: alt.DurationMinutes,
				TimeDiffMinutes: alt.TimeDiffMinutes,
				DistanceDiffKm:  alt.DistanceDiffKm.InexactFloat64(),
			})
		}
	}

	return resp
}

// PricingConfigResponse is the body of GET /v1/pricing/config. Decimal values are strings.
type PricingConfigResponse struct {
	Success bool           `json:"success"`
	Profile string         `json:"profile"`
	Config  pricing.Config `json:"config"`
}
