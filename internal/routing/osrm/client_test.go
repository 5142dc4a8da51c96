package osrm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simbok/delivery/internal/provider/resilience"
	"github.com/simbok/delivery/internal/routing"
	"github.com/simbok/delivery/pkg/geo"
)

const twoRoutes = `{
  "code": "Ok",
  "routes": [
    {
      "distance": 17345.6,
      "duration": 1856.2,
      "geometry": "_p~iF~ps|U_ulLnnqC_mqNvxq` + "`" + `@",
      "legs": [{
        "distance": 17345.6,
        "duration": 1856.2,
        "steps": [
          {"name": "Jalan Malioboro", "distance": 800, "duration": 120},
          {"name": "", "distance": 40, "duration": 10},
          {"name": "Jalan Magelang", "distance": 16000, "duration": 1700},
          {"name": "Jalan Malioboro", "distance": 505.6, "duration": 26.2}
        ]
      }]
    },
    {
      "distance": 16020.1,
      "duration": 2010.0,
      "geometry": "",
      "legs": [{"steps": [{"name": "Jalan Kaliurang"}]}]
    }
  ],
  "waypoints": []
}`

var (
	yogyakarta = geo.Point{Lat: -7.7956, Lng: 110.3695}
	sleman     = geo.Point{Lat: -7.7167, Lng: 110.3550}
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
		Now:        func() time.Time { return time.Date(2024, 6, 12, 8, 0, 0, 0, time.UTC) },
	})
}

func request() routing.DirectionsRequest {
	return routing.DirectionsRequest{
		Origin:      yogyakarta,
		Destination: sleman,
		Profile:     routing.ProfileMotorcycle,
	}
}

func TestClient_GetDirections_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/route/v1/driving/110.369500,-7.795600;110.355000,-7.716700", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "full", q.Get("overview"))
		assert.Equal(t, "true", q.Get("alternatives"))
		assert.Equal(t, "true", q.Get("steps"))
		assert.Equal(t, "polyline", q.Get("geometries"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(twoRoutes))
	})

	resp, err := client.GetDirections(context.Background(), request())
	require.NoError(t, err)

	assert.Equal(t, ProviderName, resp.Provider)
	assert.False(t, resp.Approximate)
	assert.Equal(t, time.Date(2024, 6, 12, 8, 0, 0, 0, time.UTC), resp.FetchedAt)
	require.Len(t, resp.Routes, 2)

	first := resp.Routes[0]
	assert.InDelta(t, 17345.6, first.DistanceMeters, 1e-9)
	assert.InDelta(t, 1856.2, first.DurationSeconds, 1e-9)
	assert.Equal(t, 5, first.GeometryPrecision)
	assert.Equal(t, []string{"Jalan Malioboro", "", "Jalan Magelang", "Jalan Malioboro"}, first.RoadNames)
	assert.Equal(t, []string{"Jalan Kaliurang"}, resp.Routes[1].RoadNames)
}

func TestClient_GetDirections_SummarizesThroughService(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(twoRoutes))
	})

	svc, err := routing.NewService(routing.ServiceConfig{
		Provider: client,
		CacheTTL: -1,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	res, err := svc.Resolve(context.Background(), request())
	require.NoError(t, err)

	assert.Equal(t, "17.35", res.DistanceKm.String())
	assert.Equal(t, 30, res.DurationMinutes)
	assert.Equal(t, []string{"Jalan Malioboro", "Jalan Magelang"}, res.RoadNames)
	assert.Equal(t, 2, res.TotalRoads)
	assert.Len(t, res.Geometry, 3)
	require.Len(t, res.Alternatives, 1)
	assert.Equal(t, 2, res.Alternatives[0].RouteNumber)
}

func TestClient_GetDirections_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		code     string
		sentinel error
	}{
		{"no route", http.StatusBadRequest, `{"code":"NoRoute","message":"Impossible route between points"}`, "NO_ROUTE", routing.ErrNoRouteFound},
		{"no segment", http.StatusBadRequest, `{"code":"NoSegment","message":"Could not find a matching segment"}`, "NO_ROUTE", routing.ErrNoRouteFound},
		{"no route with 200", http.StatusOK, `{"code":"NoRoute"}`, "NO_ROUTE", routing.ErrNoRouteFound},
		{"invalid query", http.StatusBadRequest, `{"code":"InvalidQuery","message":"Query string malformed"}`, "BAD_REQUEST", routing.ErrInvalidCoordinates},
		{"unknown code", http.StatusBadRequest, `{"code":"TooBig"}`, "TOOBIG", routing.ErrProviderUnavailable},
		{"rate limit", http.StatusTooManyRequests, `Too Many Requests`, "RATE_LIMIT", routing.ErrRateLimitExceeded},
		{"server error", http.StatusBadGateway, `<html>bad gateway</html>`, "SERVER_502", routing.ErrProviderUnavailable},
		{"not found", http.StatusNotFound, ``, "HTTP_404", routing.ErrProviderUnavailable},
		{"malformed body", http.StatusOK, `{"code":`, "DECODE_FAILED", routing.ErrInvalidResponse},
		{"missing code", http.StatusOK, `{"routes":[]}`, "MISSING_CODE", routing.ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.GetDirections(context.Background(), request())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var routingErr *routing.Error
			require.True(t, errors.As(err, &routingErr))
			assert.Equal(t, ProviderName, routingErr.Provider)
			assert.Equal(t, tt.code, routingErr.Code)
		})
	}
}

func TestClient_GetDirections_InvalidCoordinates(t *testing.T) {
	client := newTestClient(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("provider must not be called")
	})

	req := request()
	req.Destination = geo.Point{Lat: 91, Lng: 0}
	_, err := client.GetDirections(context.Background(), req)
	assert.ErrorIs(t, err, routing.ErrInvalidCoordinates)
}

func TestClient_GetDirections_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client := NewClient(ClientConfig{
		BaseURL:    baseURL,
		HTTPClient: http.DefaultClient,
		Logger:     zerolog.Nop(),
	})

	_, err := client.GetDirections(context.Background(), request())
	require.Error(t, err)
	assert.ErrorIs(t, err, routing.ErrProviderUnavailable)

	var routingErr *routing.Error
	require.True(t, errors.As(err, &routingErr))
	assert.Equal(t, "REQUEST_FAILED", routingErr.Code)
	assert.True(t, routingErr.IsRetryable())
}

func TestClient_DefaultResilientClientReportsHealth(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	client := NewClient(ClientConfig{
		BaseURL:  server.URL,
		Timeout:  2 * time.Second,
		Registry: registry,
		Logger:   zerolog.Nop(),
	})

	_, err := client.GetDirections(context.Background(), request())
	assert.ErrorIs(t, err, routing.ErrProviderUnavailable)
	assert.Equal(t, int32(1), calls.Load(), "routing providers are not retried")

	health := registry.GetHealth(ProviderName)
	require.NotNil(t, health)
	assert.Equal(t, uint32(1), health.Counts.ConsecutiveFailures)
	assert.Contains(t, health.LastError, "Service Unavailable")
	assert.NotNil(t, health.LastFailureAt)
}

func TestClient_GetDirections_BoundedByTimeout(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-time.After(400 * time.Millisecond):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		Timeout: 200 * time.Millisecond,
		Logger:  zerolog.Nop(),
	})

	start := time.Now()
	_, err := client.GetDirections(context.Background(), request())
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, routing.ErrProviderUnavailable)
	assert.Less(t, elapsed, 350*time.Millisecond, "a slow resolver fails once the timeout elapses")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Defaults(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://osrm.local/"})
	assert.Equal(t, "http://osrm.local", client.baseURL)
	assert.Equal(t, DefaultProfile, client.profile)
	assert.Equal(t, ProviderName, client.Name())

	assert.Equal(t, DefaultBaseURL, NewClient(ClientConfig{}).baseURL)
}
