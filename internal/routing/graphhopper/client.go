// Package graphhopper provides a client for the GraphHopper routing and geocoding APIs.
package graphhopper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/simbok/delivery/internal/provider/resilience"
	"github.com/simbok/delivery/internal/routing"
	"github.com/simbok/delivery/pkg/polyline"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "graphhopper"

	// DefaultBaseURL is the GraphHopper API base URL.
	DefaultBaseURL = "https://graphhopper.com"

	// DefaultLocale is the language of instructions and geocoding hits.
	DefaultLocale = "id"

	// maxPaths is how many paths the alternative_route algorithm is asked for.
	maxPaths = 3
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the GraphHopper client.
type ClientConfig struct {
	// APIKey is the GraphHopper API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to graphhopper.com).
	BaseURL string

	// Locale for instructions and geocoding (optional, defaults to "id").
	Locale string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to resilience.DefaultTimeout).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger

	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// Client is a GraphHopper API client. It serves both routing.Provider and geocoding.Geocoder.
type Client struct {
	apiKey     string
	baseURL    string
	locale     string
	httpClient HTTPDoer
	logger     zerolog.Logger
	now        func() time.Time
}

// NewClient creates a new GraphHopper client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	locale := cfg.Locale
	if locale == "" {
		locale = DefaultLocale
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		// One attempt: a resolution completes within Timeout or fails.
		clientCfg.MaxRetries = 0
		if cfg.Timeout > 0 {
			clientCfg.Timeout = cfg.Timeout
		}
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		locale:     locale,
		httpClient: httpClient,
		logger:     cfg.Logger,
		now:        now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// vehicle maps a routing profile to a GraphHopper vehicle.
func vehicle(p routing.Profile) string {
	if p == routing.ProfileMotorcycle {
		return "scooter"
	}
	return "car"
}

// GetDirections retrieves up to three alternative paths between two points.
func (c *Client) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
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

	weighting := string(routing.PreferenceFastest)
	if req.Preference == routing.PreferenceShortest {
		weighting = string(routing.PreferenceShortest)
	}

	q := url.Values{}
	q.Add("point", req.Origin.String())
	q.Add("point", req.Destination.String())
	q.Set("vehicle", vehicle(req.Profile))
	q.Set("weighting", weighting)
	q.Set("algorithm", "alternative_route")
	q.Set("alternative_route.max_paths", strconv.Itoa(maxPaths))
	q.Set("instructions", "true")
	q.Set("points_encoded", "true")
	q.Set("locale", c.locale)
	q.Set("key", c.apiKey)

	c.logger.Debug().
		Str("vehicle", vehicle(req.Profile)).
		Str("weighting", weighting).
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lng", req.Origin.Lng).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lng", req.Destination.Lng).
		Msg("requesting route from GraphHopper")

	status, body, err := c.get(ctx, "/api/1/route", q)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, mapRouteError(status, body)
	}

	var parsed routeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "DECODE_FAILED",
			Message:  "malformed routing response",
			Err:      fmt.Errorf("%w: %v", routing.ErrInvalidResponse, err),
		}
	}
	if len(parsed.Paths) == 0 {
		message := parsed.Message
		if message == "" {
			message = "provider returned no paths"
		}
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  message,
			Err:      routing.ErrNoRouteFound,
		}
	}

	result := c.toDirectionsResponse(&parsed)

	c.logger.Debug().
		Int("route_count", len(result.Routes)).
		Msg("received route from GraphHopper")

	return result, nil
}

// get performs a GET against the API and returns the status and body.
// Transport failures are returned as a routing.Error.
func (c *Client) get(ctx context.Context, endpoint string, q url.Values) (int, []byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		code := "REQUEST_FAILED"
		if errors.Is(err, resilience.ErrCircuitOpen) {
			code = "CIRCUIT_OPEN"
		}
		return 0, nil, &routing.Error{
			Provider: ProviderName,
			Code:     code,
			Message:  "failed to reach GraphHopper",
			Err:      routing.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &routing.Error{
			Provider: ProviderName,
			Code:     "READ_FAILED",
			Message:  "failed to read GraphHopper response",
			Err:      routing.ErrProviderUnavailable,
		}
	}
	return resp.StatusCode, body, nil
}

// mapRouteError maps GraphHopper error responses to domain errors.
func mapRouteError(status int, body []byte) error {
	var ghErr errorResponse
	_ = json.Unmarshal(body, &ghErr)
	message := ghErr.Message
	if message == "" {
		message = fmt.Sprintf("routing provider returned status %d", status)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded, please try again later",
			Err:      routing.ErrRateLimitExceeded,
		}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "FORBIDDEN",
			Message:  "API access denied - check API key configuration",
			Err:      routing.ErrProviderUnavailable,
		}
	case status == http.StatusBadRequest && isNoRoute(message):
		return &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  message,
			Err:      routing.ErrNoRouteFound,
		}
	case status == http.StatusBadRequest:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "BAD_REQUEST",
			Message:  message,
			Err:      routing.ErrInvalidCoordinates,
		}
	case status >= 500:
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", status),
			Message:  "routing provider is temporarily unavailable",
			Err:      routing.ErrProviderUnavailable,
		}
	default:
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", status),
			Message:  message,
			Err:      routing.ErrProviderUnavailable,
		}
	}
}

// isNoRoute recognizes the 400 messages GraphHopper uses for unroutable points.
func isNoRoute(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "connection between locations not found") ||
		strings.Contains(m, "cannot find point")
}

func (c *Client) toDirectionsResponse(resp *routeResponse) *routing.DirectionsResponse {
	routes := make([]routing.Route, 0, len(resp.Paths))
	for i := range resp.Paths {
		p := &resp.Paths[i]
		route := routing.Route{
			DistanceMeters:    p.Distance,
			DurationSeconds:   float64(p.Time) / 1000,
			GeometryPolyline:  p.Points,
			GeometryPrecision: polyline.Precision5,
		}
		for _, inst := range p.Instructions {
			route.RoadNames = append(route.RoadNames, inst.StreetName)
		}
		routes = append(routes, route)
	}

	return &routing.DirectionsResponse{
		Routes:    routes,
		Provider:  ProviderName,
		FetchedAt: c.now(),
	}
}
