// Package osrm provides a client for the OSRM route service.
package osrm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/simbok/delivery/internal/provider/resilience"
	"github.com/simbok/delivery/internal/routing"
	"github.com/simbok/delivery/pkg/polyline"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "osrm"

	// DefaultBaseURL is the public OSRM demo server.
	DefaultBaseURL = "http://router.project-osrm.org"

	// DefaultProfile is the OSRM routing profile. The demo server only serves driving.
	DefaultProfile = "driving"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OSRM client.
type ClientConfig struct {
	// BaseURL is the OSRM server (optional, defaults to the public demo server).
	BaseURL string

	// Profile is the OSRM profile segment of the URL (optional, defaults to driving).
	Profile string

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

// Client is an OSRM API client.
type Client struct {
	baseURL    string
	profile    string
	httpClient HTTPDoer
	logger     zerolog.Logger
	now        func() time.Time
}

// NewClient creates a new OSRM client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	profile := cfg.Profile
	if profile == "" {
		profile = DefaultProfile
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
		baseURL:    baseURL,
		profile:    profile,
		httpClient: httpClient,
		logger:     cfg.Logger,
		now:        now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetDirections retrieves the route and its alternatives between two points.
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

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.routeURL(req), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("profile", string(req.Profile)).
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lng", req.Origin.Lng).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lng", req.Destination.Lng).
		Msg("requesting route from OSRM")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		code := "REQUEST_FAILED"
		if errors.Is(err, resilience.ErrCircuitOpen) {
			code = "CIRCUIT_OPEN"
		}
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     code,
			Message:  "failed to reach routing provider",
			Err:      routing.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "READ_FAILED",
			Message:  "failed to read routing response",
			Err:      routing.ErrProviderUnavailable,
		}
	}

	var parsed routeResponse
	decodeErr := json.Unmarshal(body, &parsed)

	// OSRM reports NoRoute and friends with a 400 and a JSON code, so the code wins over the status.
	if decodeErr == nil && parsed.Code != "" && parsed.Code != codeOK {
		return nil, mapCode(parsed.Code, parsed.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, mapStatus(resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "DECODE_FAILED",
			Message:  "malformed routing response",
			Err:      fmt.Errorf("%w: %v", routing.ErrInvalidResponse, decodeErr),
		}
	}
	if parsed.Code != codeOK {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "MISSING_CODE",
			Message:  "routing response carries no status code",
			Err:      routing.ErrInvalidResponse,
		}
	}

	result := c.toDirectionsResponse(&parsed)

	c.logger.Debug().
		Int("route_count", len(result.Routes)).
		Msg("received route from OSRM")

	return result, nil
}

func (c *Client) routeURL(req routing.DirectionsRequest) string {
	q := url.Values{}
	q.Set("overview", "full")
	q.Set("alternatives", "true")
	q.Set("steps", "true")
	q.Set("geometries", "polyline")

	return fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?%s",
		c.baseURL, c.profile,
		req.Origin.Lng, req.Origin.Lat,
		req.Destination.Lng, req.Destination.Lat,
		q.Encode())
}

// mapCode maps an OSRM response code to a domain error.
func mapCode(code, message string) error {
	if message == "" {
		message = "routing provider returned " + code
	}
	switch code {
	case codeNoRoute, codeNoSegment:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  message,
			Err:      routing.ErrNoRouteFound,
		}
	case "InvalidQuery", "InvalidValue", "InvalidOptions":
		return &routing.Error{
			Provider: ProviderName,
			Code:     "BAD_REQUEST",
			Message:  message,
			Err:      routing.ErrInvalidCoordinates,
		}
	default:
		return &routing.Error{
			Provider: ProviderName,
			Code:     strings.ToUpper(code),
			Message:  message,
			Err:      routing.ErrProviderUnavailable,
		}
	}
}

// mapStatus maps a non-200 status without a usable OSRM code to a domain error.
func mapStatus(status int) error {
	if status == http.StatusTooManyRequests {
		return &routing.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded, please try again later",
			Err:      routing.ErrRateLimitExceeded,
		}
	}
	if status >= 500 {
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", status),
			Message:  "routing provider is temporarily unavailable",
			Err:      routing.ErrProviderUnavailable,
		}
	}
	return &routing.Error{
		Provider: ProviderName,
		Code:     fmt.Sprintf("HTTP_%d", status),
		Message:  fmt.Sprintf("routing provider returned status %d", status),
		Err:      routing.ErrProviderUnavailable,
	}
}

func (c *Client) toDirectionsResponse(resp *routeResponse) *routing.DirectionsResponse {
	routes := make([]routing.Route, 0, len(resp.Routes))
	for i := range resp.Routes {
		r := &resp.Routes[i]
		route := routing.Route{
			DistanceMeters:    r.Distance,
			DurationSeconds:   r.Duration,
			GeometryPolyline:  r.Geometry,
			GeometryPrecision: polyline.Precision5,
		}
		for _, l := range r.Legs {
			for _, s := range l.Steps {
				route.RoadNames = append(route.RoadNames, s.Name)
			}
		}
		routes = append(routes, route)
	}

	return &routing.DirectionsResponse{
		Routes:    routes,
		Provider:  ProviderName,
		FetchedAt: c.now(),
	}
}
