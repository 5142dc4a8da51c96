package googlemaps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simbok/delivery/internal/routing"
	"github.com/simbok/delivery/pkg/geo"
)

const okMatrix = `{
  "status": "OK",
  "origin_addresses": ["Jl. Malioboro, Yogyakarta"],
  "destination_addresses": ["Sleman, Yogyakarta"],
  "rows": [{
    "elements": [{
      "status": "OK",
      "distance": {"text": "17,3 km", "value": 17346},
      "duration": {"text": "31 menit", "value": 1856}
    }]
  }]
}`

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := New(Config{
		APIKey:     "AIza-test",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	return p
}

func request() routing.DirectionsRequest {
	return routing.DirectionsRequest{
		Origin:      geo.Point{Lat: -7.7956, Lng: 110.3695},
		Destination: geo.Point{Lat: -7.7167, Lng: 110.3550},
		Profile:     routing.ProfileMotorcycle,
	}
}

func TestProvider_GetDirections_Success(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/distancematrix/json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "-7.795600,110.369500", q.Get("origins"))
		assert.Equal(t, "-7.716700,110.355000", q.Get("destinations"))
		assert.Equal(t, "driving", q.Get("mode"))
		assert.Equal(t, "id", q.Get("language"))
		assert.Equal(t, "AIza-test", q.Get("key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okMatrix))
	})

	resp, err := p.GetDirections(context.Background(), request())
	require.NoError(t, err)

	assert.Equal(t, ProviderName, resp.Provider)
	require.Len(t, resp.Routes, 1)
	assert.InDelta(t, 17346.0, resp.Routes[0].DistanceMeters, 1e-9)
	assert.InDelta(t, 1856.0, resp.Routes[0].DurationSeconds, 1e-9)
	assert.Empty(t, resp.Routes[0].RoadNames)
	assert.Empty(t, resp.Routes[0].GeometryPolyline)
}

func TestProvider_ResolvesThroughService(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(okMatrix))
	})

	svc, err := routing.NewService(routing.ServiceConfig{Provider: p, CacheTTL: -1, Logger: zerolog.Nop()})
	require.NoError(t, err)

	res, err := svc.Resolve(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "17.35", res.DistanceKm.String())
	assert.Equal(t, 30, res.DurationMinutes)
	assert.Empty(t, res.Alternatives)
	assert.Nil(t, res.Geometry)
}

func TestProvider_GetDirections_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		code     string
		sentinel error
	}{
		{
			name:     "zero results",
			body:     `{"status":"OK","rows":[{"elements":[{"status":"ZERO_RESULTS"}]}]}`,
			code:     "NO_ROUTE",
			sentinel: routing.ErrNoRouteFound,
		},
		{
			name:     "element not found",
			body:     `{"status":"OK","rows":[{"elements":[{"status":"NOT_FOUND"}]}]}`,
			code:     "NO_ROUTE",
			sentinel: routing.ErrNoRouteFound,
		},
		{
			name:     "empty rows",
			body:     `{"status":"OK","rows":[]}`,
			code:     "EMPTY_MATRIX",
			sentinel: routing.ErrInvalidResponse,
		},
		{
			name:     "over query limit",
			body:     `{"status":"OVER_QUERY_LIMIT","error_message":"You have exceeded your rate-limit for this API."}`,
			code:     "RATE_LIMIT",
			sentinel: routing.ErrRateLimitExceeded,
		},
		{
			name:     "request denied",
			body:     `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`,
			code:     "FORBIDDEN",
			sentinel: routing.ErrProviderUnavailable,
		},
		{
			name:     "invalid request",
			body:     `{"status":"INVALID_REQUEST","error_message":"Invalid request."}`,
			code:     "BAD_REQUEST",
			sentinel: routing.ErrInvalidCoordinates,
		},
		{
			name:     "unknown error",
			body:     `{"status":"UNKNOWN_ERROR"}`,
			code:     "REQUEST_FAILED",
			sentinel: routing.ErrProviderUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := p.GetDirections(context.Background(), request())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var routingErr *routing.Error
			require.True(t, errors.As(err, &routingErr))
			assert.Equal(t, ProviderName, routingErr.Provider)
			assert.Equal(t, tt.code, routingErr.Code)
		})
	}
}

func TestProvider_InvalidCoordinates(t *testing.T) {
	p := newTestProvider(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("provider must not be called")
	})

	req := request()
	req.Origin = geo.Point{Lat: 120, Lng: 0}
	_, err := p.GetDirections(context.Background(), req)
	assert.ErrorIs(t, err, routing.ErrInvalidCoordinates)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{Logger: zerolog.Nop()})
	assert.Error(t, err)
}
