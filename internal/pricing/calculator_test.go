package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jakarta = mustLocation("Asia/Jakarta")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// wednesday returns 12 June 2024 (a Wednesday) at the given Jakarta hour.
func wednesday(hour int) time.Time {
	return time.Date(2024, 6, 12, hour, 0, 0, 0, jakarta)
}

// saturday returns 15 June 2024 at the given Jakarta hour.
func saturday(hour int) time.Time {
	return time.Date(2024, 6, 15, hour, 0, 0, 0, jakarta)
}

func km(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestCalculator(t *testing.T, mutate func(*Config)) *Calculator {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := NewCalculator(cfg)
	require.NoError(t, err)
	return c
}

func TestCalculate_SingleTierExample(t *testing.T) {
	c := newTestCalculator(t, func(cfg *Config) {
		cfg.PriceTiers = nil
	})

	q, err := c.Calculate(km("2.0"), VehicleMotor, false, wednesday(10))
	require.NoError(t, err)

	assert.Equal(t, int64(5000), q.BasePrice)
	assert.Equal(t, "0-999 km", q.TierRange)
	assert.Equal(t, int64(2500), q.RatePerKm)
	assert.Equal(t, int64(5000), q.DistanceCharge)
	assert.Equal(t, int64(10000), q.Subtotal)
	assert.True(t, q.SurgeMultiplier.Equal(decimal.NewFromInt(1)))
	assert.Empty(t, q.SurgeReasons)
	assert.Equal(t, int64(10000), q.PriceWithSurge)
	assert.Equal(t, int64(1000), q.PlatformFee)
	assert.Equal(t, int64(11000), q.FinalPrice)
	assert.False(t, q.MinChargeApplied)
	assert.Equal(t, 2000, q.DistanceMeters)
}

func TestCalculate_CarSurgeExample(t *testing.T) {
	c := newTestCalculator(t, func(cfg *Config) {
		cfg.PriceTiers = []Tier{
			NewTier(0, 5, 2500),
			NewTier(5, 15, 2000),
			NewTier(15, 30, 1800),
		}
	})

	q, err := c.Calculate(km("20"), VehicleMobil, false, wednesday(8))
	require.NoError(t, err)

	assert.Equal(t, "15-30 km", q.TierRange)
	assert.Equal(t, int64(2700), q.RatePerKm)
	assert.Equal(t, int64(54000), q.DistanceCharge)
	assert.Equal(t, int64(7500), q.BasePrice)
	assert.Equal(t, int64(61500), q.Subtotal)
	assert.Equal(t, "1.3", q.SurgeMultiplier.String())
	assert.Equal(t, []string{"Peak hour (+30%)"}, q.SurgeReasons)
	assert.Equal(t, int64(79950), q.PriceWithSurge)
	assert.Equal(t, int64(7995), q.PlatformFee)
	assert.Equal(t, int64(88000), q.FinalPrice)
	assert.Equal(t, VehicleMobil, q.VehicleType)
}

func TestCalculate_TierBoundaries(t *testing.T) {
	c := newTestCalculator(t, nil)

	tests := []struct {
		distance string
		motor    int64
		tier     string
	}{
		{"0.5", 2500, "0-5 km"},
		{"4.99", 2500, "0-5 km"},
		{"5", 2000, "5-15 km"},
		{"14.99", 2000, "5-15 km"},
		{"15", 1800, "15-30 km"},
		{"29.99", 1800, "15-30 km"},
		{"30", 1500, "30-999 km"},
		{"100", 1500, "30-999 km"},
	}

	for _, tt := range tests {
		t.Run(tt.distance, func(t *testing.T) {
			q, err := c.Calculate(km(tt.distance), VehicleMotor, false, wednesday(10))
			require.NoError(t, err)
			assert.Equal(t, tt.motor, q.RatePerKm)
			assert.Equal(t, tt.tier, q.TierRange)

			car, err := c.Calculate(km(tt.distance), VehicleMobil, false, wednesday(10))
			require.NoError(t, err)
			assert.Equal(t, decimal.NewFromInt(tt.motor).Mul(km("1.5")).IntPart(), car.RatePerKm)
		})
	}
}

func TestCalculate_ClampsToMinimumDistance(t *testing.T) {
	c := newTestCalculator(t, nil)

	short, err := c.Calculate(km("0.1"), VehicleMotor, false, wednesday(10))
	require.NoError(t, err)
	clamped, err := c.Calculate(km("0.5"), VehicleMotor, false, wednesday(10))
	require.NoError(t, err)

	assert.True(t, short.DistanceKm.Equal(km("0.5")))
	assert.Equal(t, clamped.DistanceCharge, short.DistanceCharge)
	assert.Equal(t, clamped.FinalPrice, short.FinalPrice)
}

func TestCalculate_MinimumCharge(t *testing.T) {
	c := newTestCalculator(t, nil)

	// 5000 + 0.5*2500 = 6250, +10% = 6875, floored to 7000.
	q, err := c.Calculate(km("0.5"), VehicleMotor, false, wednesday(10))
	require.NoError(t, err)

	assert.Equal(t, int64(6875), q.PriceWithSurge+q.PlatformFee)
	assert.True(t, q.MinChargeApplied)
	assert.Equal(t, int64(7000), q.FinalPrice)
}

func TestCalculate_DistanceTooFar(t *testing.T) {
	c := newTestCalculator(t, nil)

	q, err := c.Calculate(km("100.01"), VehicleMotor, false, wednesday(10))
	assert.Nil(t, q)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDistanceTooFar))

	var tooFar *DistanceTooFarError
	require.ErrorAs(t, err, &tooFar)
	assert.True(t, tooFar.MaxKm.Equal(decimal.NewFromInt(100)))
	assert.Contains(t, err.Error(), "100 km")
}

func TestCalculate_InvalidInput(t *testing.T) {
	c := newTestCalculator(t, nil)

	_, err := c.Calculate(km("-1"), VehicleMotor, false, wednesday(10))
	var inputErr *InvalidInputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "distance_km", inputErr.Field)

	_, err = c.Calculate(km("2"), VehicleType("truck"), false, wednesday(10))
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "vehicle_type", inputErr.Field)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCalculate_FinalPriceIsRoundedAndFloored(t *testing.T) {
	c := newTestCalculator(t, nil)

	for _, d := range []string{"0", "0.3", "1.37", "4.2", "5.55", "12.01", "17.333", "29.9", "42.42", "99.99"} {
		for _, v := range []VehicleType{VehicleMotor, VehicleMobil} {
			for _, rain := range []bool{false, true} {
				q, err := c.Calculate(km(d), v, rain, saturday(18))
				require.NoError(t, err)
				assert.Zero(t, q.FinalPrice%100, "distance %s", d)
				assert.GreaterOrEqual(t, q.FinalPrice, int64(7000), "distance %s", d)
				assert.GreaterOrEqual(t, q.FinalPrice, q.PriceWithSurge+q.PlatformFee)
			}
		}
	}
}

func TestCalculate_Idempotent(t *testing.T) {
	c := newTestCalculator(t, nil)
	now := saturday(12)

	a, err := c.Calculate(km("17.5"), VehicleMobil, true, now)
	require.NoError(t, err)
	b, err := c.Calculate(km("17.5"), VehicleMobil, true, now)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestCalculate_UsesConfiguredTimezone(t *testing.T) {
	c := newTestCalculator(t, nil)

	// 01:00 UTC is 08:00 in Jakarta.
	q, err := c.Calculate(km("3"), VehicleMotor, false, time.Date(2024, 6, 12, 1, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"Peak hour (+30%)"}, q.SurgeReasons)

	// Friday 20:00 UTC is Saturday 03:00 in Jakarta.
	q, err = c.Calculate(km("3"), VehicleMotor, false, time.Date(2024, 6, 14, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"Weekend (+10%)"}, q.SurgeReasons)
}

func TestCalculateRoute_CarriesMetadata(t *testing.T) {
	c := newTestCalculator(t, nil)
	route := &RouteInfo{
		Method:         "osrm",
		DistanceMeters: 12345,
		RoadNames:      []string{"Jalan Malioboro"},
		TotalRoads:     1,
	}

	q, err := c.CalculateRoute(km("12.35"), 21, route, VehicleMotor, false, wednesday(10))
	require.NoError(t, err)

	assert.Equal(t, 21, q.DurationMinutes)
	assert.Equal(t, 12345, q.DistanceMeters)
	require.NotNil(t, q.Route)
	assert.Equal(t, "osrm", q.Route.Method)

	_, err = c.CalculateRoute(km("1"), -1, nil, VehicleMotor, false, wednesday(10))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestComposeSurge(t *testing.T) {
	c := newTestCalculator(t, nil)

	tests := []struct {
		name       string
		hour       int
		weekday    time.Weekday
		raining    bool
		multiplier string
		reasons    []string
	}{
		{"none", 10, time.Wednesday, false, "1", nil},
		{"peak hour", 7, time.Monday, false, "1.3", []string{"Peak hour (+30%)"}},
		{"rain", 10, time.Monday, true, "1.2", []string{"Rain (+20%)"}},
		{"sunday", 10, time.Sunday, false, "1.1", []string{"Weekend (+10%)"}},
		{"peak and rain", 18, time.Tuesday, true, "1.56", []string{"Peak hour (+30%)", "Rain (+20%)"}},
		{"all three", 19, time.Saturday, true, "1.716", []string{"Peak hour (+30%)", "Rain (+20%)", "Weekend (+10%)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := c.ComposeSurge(tt.hour, tt.weekday, tt.raining)
			assert.True(t, s.Multiplier.Equal(km(tt.multiplier)), "got %s", s.Multiplier)
			assert.Equal(t, tt.reasons, s.Reasons)
		})
	}
}

func TestComposeSurge_IsMultiplicative(t *testing.T) {
	c := newTestCalculator(t, nil)
	cfg := c.Config()

	s := c.ComposeSurge(8, time.Wednesday, true)
	assert.True(t, s.Multiplier.Equal(cfg.SurgeMultiplier.Mul(cfg.RainMultiplier)))
	assert.False(t, s.Multiplier.Equal(cfg.SurgeMultiplier.Add(cfg.RainMultiplier).Sub(decimal.NewFromInt(1))))
}

func TestCalculate_SurgeMultiplierDisplayRounded(t *testing.T) {
	c := newTestCalculator(t, nil)

	q, err := c.Calculate(km("3"), VehicleMotor, true, saturday(19))
	require.NoError(t, err)
	assert.Equal(t, "1.72", q.SurgeMultiplier.String())
}

func TestSelectTier_GapFallsBackToLastTier(t *testing.T) {
	tiers := []Tier{NewTier(0, 5, 2500), NewTier(10, 20, 1900)}

	assert.Equal(t, "10-20 km", SelectTier(km("7"), tiers).Label())
	assert.Equal(t, "10-20 km", SelectTier(km("25"), tiers).Label())
	assert.Equal(t, "0-5 km", SelectTier(km("0"), tiers).Label())
}

func TestCalculator_ConfigIsCopied(t *testing.T) {
	cfg := DefaultConfig()
	c, err := NewCalculator(cfg)
	require.NoError(t, err)

	cfg.PriceTiers[0].RatePerKm = decimal.NewFromInt(1)
	got := c.Config()
	got.SurgeHours[0] = 3

	assert.True(t, c.Tiers()[0].RatePerKm.Equal(decimal.NewFromInt(2500)))
	assert.Equal(t, 7, c.Config().SurgeHours[0])
}
