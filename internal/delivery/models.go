// Package delivery prices deliveries between two points by resolving the route
// and running it through the pricing calculator.
package delivery

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/simbok/delivery/internal/routing"
	"github.com/simbok/delivery/pkg/geo"
)

// Resolver resolves the route a quote is priced on. *routing.Service implements it.
type Resolver interface {
	Resolve(ctx context.Context, req routing.DirectionsRequest) (*routing.Resolution, error)
	ProviderName() string
}

// QuoteRequest asks for a quote between two coordinates.
type QuoteRequest struct {
	Origin      geo.Point
	Destination geo.Point
	VehicleType string
	IsRaining   bool
	// RoutePreference is "fastest" (default) or "shortest".
	RoutePreference string
}

// DistanceQuoteRequest asks for a quote on a caller-supplied distance.
type DistanceQuoteRequest struct {
	DistanceKm      decimal.Decimal
	DurationMinutes int
	VehicleType     string
	IsRaining       bool
}

// RouteResolutionError reports that the route could not be resolved.
type RouteResolutionError struct {
	Provider string
	Err      error
}

func (e *RouteResolutionError) Error() string {
	return fmt.Sprintf("resolving route via %s: %v", e.Provider, e.Err)
}

func (e *RouteResolutionError) Unwrap() error {
	return e.Err
}
