package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simbok/delivery/internal/pricing"
	"github.com/simbok/delivery/internal/routing"
	"github.com/simbok/delivery/internal/routing/haversine"
	"github.com/simbok/delivery/pkg/geo"
)

var (
	origin      = geo.Point{Lat: -7.7956, Lng: 110.3695}
	destination = geo.Point{Lat: -7.6079, Lng: 110.2038}
)

type stubResolver struct {
	res     *routing.Resolution
	err     error
	calls   int
	lastReq routing.DirectionsRequest
}

func (s *stubResolver) Resolve(_ context.Context, req routing.DirectionsRequest) (*routing.Resolution, error) {
	s.calls++
	s.lastReq = req
	return s.res, s.err
}

func (s *stubResolver) ProviderName() string { return "stub" }

func wednesdayMorning() time.Time {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		panic(err)
	}
	return time.Date(2024, 6, 12, 8, 0, 0, 0, loc)
}

func newTestService(t *testing.T, resolver Resolver) *Service {
	t.Helper()
	calc, err := pricing.NewCalculator(pricing.DefaultConfig())
	require.NoError(t, err)

	svc, err := NewService(ServiceConfig{
		Calculator: calc,
		Resolver:   resolver,
		Logger:     zerolog.Nop(),
		Now:        wednesdayMorning,
	})
	require.NoError(t, err)
	return svc
}

func twentyKm() *routing.Resolution {
	return &routing.Resolution{
		Provider:        "osrm",
		DistanceKm:      decimal.RequireFromString("20"),
		DistanceMeters:  20004,
		DurationMinutes: 41,
		RoadNames:       []string{"Jalan Magelang", "Jalan Raya Yogyakarta-Magelang"},
		TotalRoads:      2,
		Alternatives: []routing.Alternative{{
			RouteNumber:     2,
			DistanceKm:      decimal.RequireFromString("21.5"),
			DurationMinutes: 45,
			TimeDiffMinutes: 4,
			DistanceDiffKm:  decimal.RequireFromString("1.5"),
		}},
		Geometry: []geo.Point{origin, destination},
	}
}

func TestService_Quote(t *testing.T) {
	resolver := &stubResolver{res: twentyKm()}
	svc := newTestService(t, resolver)

	q, err := svc.Quote(context.Background(), QuoteRequest{
		Origin:      origin,
		Destination: destination,
		VehicleType: "Mobil",
	})
	require.NoError(t, err)

	assert.Equal(t, routing.ProfileCar, resolver.lastReq.Profile)
	assert.Equal(t, routing.PreferenceFastest, resolver.lastReq.Preference)
	assert.Equal(t, origin, resolver.lastReq.Origin)

	assert.Equal(t, pricing.VehicleMobil, q.VehicleType)
	assert.Equal(t, "15-30 km", q.TierRange)
	assert.Equal(t, int64(88000), q.FinalPrice)
	assert.Equal(t, 41, q.DurationMinutes)
	assert.Equal(t, 20004, q.DistanceMeters)

	require.NotNil(t, q.Route)
	assert.Equal(t, "osrm", q.Route.Method)
	assert.Equal(t, []string{"Jalan Magelang", "Jalan Raya Yogyakarta-Magelang"}, q.Route.RoadNames)
	require.Len(t, q.Route.Alternatives, 1)
	assert.Equal(t, 2, q.Route.Alternatives[0].RouteNumber)
	assert.Len(t, q.Route.Geometry, 2)
}

func TestService_Quote_MotorShortest(t *testing.T) {
	resolver := &stubResolver{res: twentyKm()}
	svc := newTestService(t, resolver)

	_, err := svc.Quote(context.Background(), QuoteRequest{
		Origin:          origin,
		Destination:     destination,
		VehicleType:     "motor",
		RoutePreference: "shortest",
	})
	require.NoError(t, err)
	assert.Equal(t, routing.ProfileMotorcycle, resolver.lastReq.Profile)
	assert.Equal(t, routing.PreferenceShortest, resolver.lastReq.Preference)
}

func TestService_Quote_InvalidInputSkipsResolver(t *testing.T) {
	tests := []struct {
		name  string
		req   QuoteRequest
		field string
	}{
		{"bad origin", QuoteRequest{Origin: geo.Point{Lat: 95}, Destination: destination, VehicleType: "motor"}, "origin"},
		{"bad destination", QuoteRequest{Origin: origin, Destination: geo.Point{Lng: -181}, VehicleType: "motor"}, "destination"},
		{"missing vehicle", QuoteRequest{Origin: origin, Destination: destination}, "vehicle_type"},
		{"unknown vehicle", QuoteRequest{Origin: origin, Destination: destination, VehicleType: "truk"}, "vehicle_type"},
		{"unknown preference", QuoteRequest{Origin: origin, Destination: destination, VehicleType: "motor", RoutePreference: "scenic"}, "route_preference"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &stubResolver{res: twentyKm()}
			svc := newTestService(t, resolver)

			_, err := svc.Quote(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, pricing.ErrInvalidInput)

			var inputErr *pricing.InvalidInputError
			require.True(t, errors.As(err, &inputErr))
			assert.Equal(t, tt.field, inputErr.Field)
			assert.Zero(t, resolver.calls)
		})
	}
}

func TestService_Quote_ResolverFailure(t *testing.T) {
	cause := &routing.Error{Provider: "osrm", Code: "NO_ROUTE", Message: "no route", Err: routing.ErrNoRouteFound}
	svc := newTestService(t, &stubResolver{err: cause})

	_, err := svc.Quote(context.Background(), QuoteRequest{Origin: origin, Destination: destination, VehicleType: "motor"})
	require.Error(t, err)

	var resErr *RouteResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, "stub", resErr.Provider)
	assert.ErrorIs(t, err, routing.ErrNoRouteFound)
	assert.Contains(t, err.Error(), "resolving route via stub")
}

func TestService_Quote_CanceledContext(t *testing.T) {
	svc := newTestService(t, &stubResolver{err: context.Canceled})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Quote(ctx, QuoteRequest{Origin: origin, Destination: destination, VehicleType: "motor"})
	assert.ErrorIs(t, err, context.Canceled)

	var resErr *RouteResolutionError
	assert.False(t, errors.As(err, &resErr))
}

func TestService_Quote_TooFar(t *testing.T) {
	res := twentyKm()
	res.DistanceKm = decimal.RequireFromString("150.25")
	svc := newTestService(t, &stubResolver{res: res})

	_, err := svc.Quote(context.Background(), QuoteRequest{Origin: origin, Destination: destination, VehicleType: "motor"})
	assert.ErrorIs(t, err, pricing.ErrDistanceTooFar)

	var tooFar *pricing.DistanceTooFarError
	require.True(t, errors.As(err, &tooFar))
	assert.Equal(t, "100", tooFar.MaxKm.String())
}

func TestService_Quote_Haversine(t *testing.T) {
	resolver, err := routing.NewService(routing.ServiceConfig{
		Provider: haversine.New(haversine.Config{}),
		CacheTTL: -1,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	svc := newTestService(t, resolver)

	q, err := svc.Quote(context.Background(), QuoteRequest{Origin: origin, Destination: destination, VehicleType: "motor"})
	require.NoError(t, err)

	require.NotNil(t, q.Route)
	assert.Equal(t, haversine.ProviderName, q.Route.Method)
	assert.True(t, q.Route.Approximate)
	assert.Zero(t, q.FinalPrice%100)
	assert.True(t, q.DistanceKm.GreaterThan(decimal.NewFromInt(20)))
}

func TestService_QuoteDistance(t *testing.T) {
	resolver := &stubResolver{}
	svc := newTestService(t, resolver)

	q, err := svc.QuoteDistance(context.Background(), DistanceQuoteRequest{
		DistanceKm:      decimal.RequireFromString("20"),
		DurationMinutes: 35,
		VehicleType:     "mobil",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(88000), q.FinalPrice)
	assert.Equal(t, 35, q.DurationMinutes)
	assert.Nil(t, q.Route)
	assert.Zero(t, resolver.calls)

	_, err = svc.QuoteDistance(context.Background(), DistanceQuoteRequest{
		DistanceKm:  decimal.RequireFromString("-1"),
		VehicleType: "motor",
	})
	assert.ErrorIs(t, err, pricing.ErrInvalidInput)
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceConfig{Resolver: &stubResolver{}})
	assert.Error(t, err)

	calc, err := pricing.NewCalculator(pricing.DefaultConfig())
	require.NoError(t, err)
	_, err = NewService(ServiceConfig{Calculator: calc})
	assert.Error(t, err)
}
