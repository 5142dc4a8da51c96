package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/simbok/delivery/internal/pricing"
	"github.com/simbok/delivery/internal/routing"
)

// ServiceConfig holds configuration for the delivery service.
type ServiceConfig struct {
	Calculator *pricing.Calculator
	Resolver   Resolver
	Logger     zerolog.Logger

	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// Service produces delivery quotes.
type Service struct {
	calculator *pricing.Calculator
	resolver   Resolver
	logger     zerolog.Logger
	now        func() time.Time
}

// NewService creates a delivery service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Calculator == nil {
		return nil, errors.New("delivery: calculator is required")
	}
	if cfg.Resolver == nil {
		return nil, errors.New("delivery: resolver is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		calculator: cfg.Calculator,
		resolver:   cfg.Resolver,
		logger:     cfg.Logger,
		now:        now,
	}, nil
}

// Calculator returns the calculator quotes are priced with.
func (s *Service) Calculator() *pricing.Calculator {
	return s.calculator
}

// Quote resolves the route between two points and prices it. Input is validated
// before the resolver is called.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*pricing.Quote, error) {
	if err := req.Origin.Validate(); err != nil {
		return nil, &pricing.InvalidInputError{Field: "origin", Reason: err.Error()}
	}
	if err := req.Destination.Validate(); err != nil {
		return nil, &pricing.InvalidInputError{Field: "destination", Reason: err.Error()}
	}
	vehicle, err := pricing.ParseVehicleType(req.VehicleType)
	if err != nil {
		return nil, err
	}
	pref, err := routing.ParsePreference(req.RoutePreference)
	if err != nil {
		return nil, &pricing.InvalidInputError{Field: "route_preference", Reason: "must be one of fastest, shortest"}
	}

	res, err := s.resolver.Resolve(ctx, routing.DirectionsRequest{
		Origin:      req.Origin,
		Destination: req.Destination,
		Profile:     profileFor(vehicle),
		Preference:  pref,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		provider := s.resolver.ProviderName()
		s.logger.Error().Err(err).
			Str("provider", provider).
			Float64("origin_lat", req.Origin.Lat).
			Float64("origin_lng", req.Origin.Lng).
			Float64("dest_lat", req.Destination.Lat).
			Float64("dest_lng", req.Destination.Lng).
			Msg("route resolution failed")
		return nil, &RouteResolutionError{Provider: provider, Err: err}
	}

	quote, err := s.calculator.CalculateRoute(res.DistanceKm, res.DurationMinutes, routeInfo(res), vehicle, req.IsRaining, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("provider", res.Provider).
		Str("distance_km", quote.DistanceKm.String()).
		Str("vehicle_type", string(vehicle)).
		Int64("final_price", quote.FinalPrice).
		Msg("quote computed")

	return quote, nil
}

// QuoteDistance prices a caller-supplied distance without calling the resolver.
func (s *Service) QuoteDistance(_ context.Context, req DistanceQuoteRequest) (*pricing.Quote, error) {
	vehicle, err := pricing.ParseVehicleType(req.VehicleType)
	if err != nil {
		return nil, err
	}
	return s.calculator.CalculateRoute(req.DistanceKm, req.DurationMinutes, nil, vehicle, req.IsRaining, s.now())
}

// profileFor maps a vehicle type to the routing profile it travels on.
func profileFor(v pricing.VehicleType) routing.Profile {
	if v == pricing.VehicleMobil {
		return routing.ProfileCar
	}
	return routing.ProfileMotorcycle
}

func routeInfo(res *routing.Resolution) *pricing.RouteInfo {
	info := &pricing.RouteInfo{
		Method:         res.Provider,
		DistanceMeters: res.DistanceMeters,
		RoadNames:      res.RoadNames,
		TotalRoads:     res.TotalRoads,
		Geometry:       res.Geometry,
		Approximate:    res.Approximate,
	}
	for _, alt := range res.Alternatives {
		info.Alternatives = append(info.Alternatives, pricing.Alternative{
			RouteNumber:     alt.RouteNumber,
			DistanceKm:      alt.DistanceKm,
			DurationMinutes: alt.DurationMinutes,
			TimeDiffMinutes: alt.TimeDiffMinutes,
			DistanceDiffKm:  alt.DistanceDiffKm,
		})
	}
	return info
}
