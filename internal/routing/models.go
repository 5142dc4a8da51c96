// Package routing resolves the road distance and travel time between two points.
package routing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/simbok/delivery/pkg/geo"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no valid route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrInvalidResponse indicates the provider answered with a body that could not be used.
	ErrInvalidResponse = errors.New("invalid routing response")
)

// Provider defines the interface for routing providers.
type Provider interface {
	// GetDirections retrieves route directions between two points.
	// Returns multiple route alternatives when available.
	GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Profile is the vehicle the route is computed for.
type Profile string

const (
	ProfileMotorcycle Profile = "motorcycle"
	ProfileCar        Profile = "car"
)

// Preference selects which returned route is priced.
type Preference string

const (
	// PreferenceFastest takes the provider's first (recommended) route.
	PreferenceFastest Preference = "fastest"
	// PreferenceShortest takes the route with the smallest distance.
	PreferenceShortest Preference = "shortest"
)

// ParsePreference parses a route preference. An empty string means fastest.
func ParsePreference(s string) (Preference, error) {
	switch Preference(s) {
	case "", PreferenceFastest:
		return PreferenceFastest, nil
	case PreferenceShortest:
		return PreferenceShortest, nil
	default:
		return "", fmt.Errorf("unknown route preference %q", s)
	}
}

// DirectionsRequest is the request for computing routes.
type DirectionsRequest struct {
	Origin          geo.Point
	Destination     geo.Point
	Profile         Profile
	Preference      Preference
	MaxAlternatives int // Maximum number of alternative routes to return (default: 2)
}

// DirectionsResponse is the response containing route alternatives.
type DirectionsResponse struct {
	Routes    []Route
	Provider  string
	FetchedAt time.Time
	// Approximate is set when distance and duration are estimated rather than routed.
	Approximate bool
}

// Route represents a single route option.
type Route struct {
	DistanceMeters  float64
	DurationSeconds float64
	// GeometryPolyline is the encoded path; GeometryPrecision its coordinate precision.
	GeometryPolyline  string
	GeometryPrecision int
	// RoadNames are step or instruction street names in travel order, possibly repeated or empty.
	RoadNames []string
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
