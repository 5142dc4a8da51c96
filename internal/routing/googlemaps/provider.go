// Package googlemaps resolves routes through the Google Maps Distance Matrix API.
package googlemaps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"

	"github.com/simbok/delivery/internal/provider/resilience"
	"github.com/simbok/delivery/internal/routing"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "googlemaps"

	// DefaultLanguage is the language of returned addresses.
	DefaultLanguage = "id"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds configuration for the Google Maps provider.
type Config struct {
	// APIKey is the Google Maps API key (required).
	APIKey string

	// BaseURL overrides the Maps API base URL (optional, for tests).
	BaseURL string

	// Language of returned addresses (optional, defaults to "id").
	Language string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to resilience.DefaultTimeout).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for provider operations.
	Logger zerolog.Logger

	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// Provider is a routing.Provider backed by the Distance Matrix API.
// It returns a single route without road names or geometry.
type Provider struct {
	client   *maps.Client
	language string
	logger   zerolog.Logger
	now      func() time.Time
}

// doerTransport lets the maps client send its requests through an HTTPDoer.
type doerTransport struct {
	doer HTTPDoer
}

func (t doerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.doer.Do(req)
}

// New creates a Google Maps provider.
func New(cfg Config) (*Provider, error) {
	doer := cfg.HTTPClient
	if doer == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		// One attempt: a resolution completes within Timeout or fails.
		clientCfg.MaxRetries = 0
		if cfg.Timeout > 0 {
			clientCfg.Timeout = cfg.Timeout
		}
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		doer = resilience.NewClient(clientCfg)
	}

	opts := []maps.ClientOption{
		maps.WithAPIKey(cfg.APIKey),
		maps.WithHTTPClient(&http.Client{Transport: doerTransport{doer: doer}}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, maps.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")))
	}

	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating maps client: %w", err)
	}

	language := cfg.Language
	if language == "" {
		language = DefaultLanguage
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Provider{
		client:   client,
		language: language,
		logger:   cfg.Logger,
		now:      now,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return ProviderName
}

// GetDirections asks the Distance Matrix for the driving distance and duration
// between two points. Motorcycles are routed as driving.
func (p *Provider) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	if err := req.Origin.Validate(); err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      routing.ErrInvalidCoordinates,
		}
	}
	if err := req.Destination.Validate(); err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      routing.ErrInvalidCoordinates,
		}
	}

	dmReq := &maps.DistanceMatrixRequest{
		Origins:      []string{req.Origin.String()},
		Destinations: []string{req.Destination.String()},
		Mode:         maps.TravelModeDriving,
		Language:     p.language,
	}

	p.logger.Debug().
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lng", req.Origin.Lng).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lng", req.Destination.Lng).
		Msg("requesting distance matrix from Google Maps")

	resp, err := p.client.DistanceMatrix(ctx, dmReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, mapError(err)
	}

	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 || resp.Rows[0].Elements[0] == nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "EMPTY_MATRIX",
			Message:  "distance matrix has no elements",
			Err:      routing.ErrInvalidResponse,
		}
	}

	element := resp.Rows[0].Elements[0]
	if element.Status != "OK" {
		return nil, mapElementStatus(element.Status)
	}

	return &routing.DirectionsResponse{
		Routes: []routing.Route{{
			DistanceMeters:  float64(element.Distance.Meters),
			DurationSeconds: element.Duration.Seconds(),
		}},
		Provider:  ProviderName,
		FetchedAt: p.now(),
	}, nil
}

// mapError maps a maps client error to a domain error. The client reports
// top-level statuses as "maps: STATUS - message".
func mapError(err error) error {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return &routing.Error{
			Provider: ProviderName,
			Code:     "CIRCUIT_OPEN",
			Message:  "failed to reach routing provider",
			Err:      routing.ErrProviderUnavailable,
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "OVER_QUERY_LIMIT") || strings.Contains(msg, "OVER_DAILY_LIMIT"):
		return &routing.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded, please try again later",
			Err:      routing.ErrRateLimitExceeded,
		}
	case strings.Contains(msg, "REQUEST_DENIED"):
		return &routing.Error{
			Provider: ProviderName,
			Code:     "FORBIDDEN",
			Message:  "API access denied - check API key configuration",
			Err:      routing.ErrProviderUnavailable,
		}
	case strings.Contains(msg, "INVALID_REQUEST"):
		return &routing.Error{
			Provider: ProviderName,
			Code:     "BAD_REQUEST",
			Message:  msg,
			Err:      routing.ErrInvalidCoordinates,
		}
	default:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  msg,
			Err:      routing.ErrProviderUnavailable,
		}
	}
}

func mapElementStatus(status string) error {
	switch status {
	case "ZERO_RESULTS", "NOT_FOUND", "MAX_ROUTE_LENGTH_EXCEEDED":
		return &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no route found: " + status,
			Err:      routing.ErrNoRouteFound,
		}
	default:
		return &routing.Error{
			Provider: ProviderName,
			Code:     status,
			Message:  "distance matrix element status " + status,
			Err:      routing.ErrProviderUnavailable,
		}
	}
}
