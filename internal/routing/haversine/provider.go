// Package haversine estimates routes from great-circle distance when no routing
// engine is available.
package haversine

import (
	"context"
	"time"

	"github.com/simbok/delivery/internal/routing"
	"github.com/simbok/delivery/pkg/geo"
	"github.com/simbok/delivery/pkg/polyline"
)

// ProviderName is the name reported in quotes and metrics.
const ProviderName = "haversine"

// Config holds the travel time heuristic. Durations are estimated as
// distance_km*MinutesPerKm + FixedMinutes.
type Config struct {
	// MinutesPerKm (default: 3).
	MinutesPerKm float64
	// FixedMinutes covers pickup and handover (default: 5).
	FixedMinutes float64
}

// Provider estimates a single straight-line route.
type Provider struct {
	minutesPerKm float64
	fixedMinutes float64
}

// New creates a haversine provider.
func New(cfg Config) *Provider {
	minutesPerKm := cfg.MinutesPerKm
	if minutesPerKm == 0 {
		minutesPerKm = 3
	}
	fixedMinutes := cfg.FixedMinutes
	if fixedMinutes == 0 {
		fixedMinutes = 5
	}
	return &Provider{minutesPerKm: minutesPerKm, fixedMinutes: fixedMinutes}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return ProviderName
}

// GetDirections returns the great-circle route between the two points.
func (p *Provider) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	km := geo.HaversineKm(req.Origin, req.Destination)
	minutes := km*p.minutesPerKm + p.fixedMinutes

	return &routing.DirectionsResponse{
		Routes: []routing.Route{{
			DistanceMeters:    km * 1000,
			DurationSeconds:   minutes * 60,
			GeometryPolyline:  polyline.Encode([]geo.Point{req.Origin, req.Destination}),
			GeometryPrecision: polyline.Precision5,
		}},
		Provider:    ProviderName,
		FetchedAt:   time.Now(),
		Approximate: true,
	}, nil
}
