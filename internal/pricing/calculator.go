package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
	meters  = decimal.NewFromInt(1000)
)

// Calculator prices deliveries against a fixed tariff. It is safe for concurrent use.
type Calculator struct {
	cfg        Config
	tiers      []Tier
	surgeHours map[int]struct{}
	loc        *time.Location
}

// NewCalculator validates cfg and returns a calculator for it.
func NewCalculator(cfg Config) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg = cfg.clone()
	loc, err := cfg.location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	hours := make(map[int]struct{}, len(cfg.SurgeHours))
	for _, h := range cfg.SurgeHours {
		hours[h] = struct{}{}
	}

	return &Calculator{
		cfg:        cfg,
		tiers:      cfg.EffectiveTiers(),
		surgeHours: hours,
		loc:        loc,
	}, nil
}

// Config returns a copy of the tariff.
func (c *Calculator) Config() Config {
	return c.cfg.clone()
}

// Tiers returns the tiers used for selection, including the legacy single tier.
func (c *Calculator) Tiers() []Tier {
	return append([]Tier(nil), c.tiers...)
}

// Location returns the zone surge conditions are evaluated in.
func (c *Calculator) Location() *time.Location {
	return c.loc
}

// SelectTier returns the first tier containing distanceKm, or the last tier when none does.
// tiers must not be empty.
func SelectTier(distanceKm decimal.Decimal, tiers []Tier) Tier {
	for _, t := range tiers {
		if t.Contains(distanceKm) {
			return t
		}
	}
	return tiers[len(tiers)-1]
}

// ComposeSurge multiplies the active surge factors in the order peak hour, rain, weekend.
func (c *Calculator) ComposeSurge(hour int, weekday time.Weekday, isRaining bool) Surge {
	s := Surge{Multiplier: one}

	if _, ok := c.surgeHours[hour]; ok {
		s.apply(c.cfg.SurgeMultiplier, "Peak hour")
	}
	if isRaining {
		s.apply(c.cfg.RainMultiplier, "Rain")
	}
	if weekday == time.Saturday || weekday == time.Sunday {
		s.apply(c.cfg.PeakDayMultiplier, "Weekend")
	}

	return s
}

func (s *Surge) apply(factor decimal.Decimal, label string) {
	s.Multiplier = s.Multiplier.Mul(factor)
	pct := factor.Sub(one).Mul(hundred).IntPart()
	s.Reasons = append(s.Reasons, fmt.Sprintf("%s (+%d%%)", label, pct))
}

// VehicleMultiplier returns the price multiplier for a vehicle class.
func (c *Calculator) VehicleMultiplier(v VehicleType) decimal.Decimal {
	if v == VehicleMobil {
		return c.cfg.CarMultiplier
	}
	return one
}

// Calculate prices a delivery of distanceKm. Surge hour and weekday are taken from now
// in the configured timezone.
func (c *Calculator) Calculate(distanceKm decimal.Decimal, vehicle VehicleType, isRaining bool, now time.Time) (*Quote, error) {
	if distanceKm.IsNegative() {
		return nil, &InvalidInputError{Field: "distance_km", Reason: "must not be negative"}
	}
	if !vehicle.Valid() {
		return nil, &InvalidInputError{Field: "vehicle_type", Reason: "must be one of motor, mobil"}
	}
	if distanceKm.GreaterThan(c.cfg.MaxDistanceKm) {
		return nil, &DistanceTooFarError{DistanceKm: distanceKm, MaxKm: c.cfg.MaxDistanceKm}
	}

	if distanceKm.LessThan(c.cfg.MinDistanceKm) {
		distanceKm = c.cfg.MinDistanceKm
	}

	vm := c.VehicleMultiplier(vehicle)
	basePrice := c.cfg.BasePrice.Mul(vm)

	tier := SelectTier(distanceKm, c.tiers)
	rate := tier.RatePerKm.Mul(vm)
	distanceCharge := distanceKm.Mul(rate)
	subtotal := basePrice.Add(distanceCharge)

	local := now.In(c.loc)
	surge := c.ComposeSurge(local.Hour(), local.Weekday(), isRaining)
	withSurge := subtotal.Mul(surge.Multiplier)

	fee := withSurge.Mul(c.cfg.PlatformFeePercent).Div(hundred)
	final := withSurge.Add(fee)

	minApplied := false
	if final.LessThan(c.cfg.MinCharge) {
		final = c.cfg.MinCharge
		minApplied = true
	}
	final = final.Div(hundred).Ceil().Mul(hundred)

	return &Quote{
		DistanceKm:         distanceKm,
		DistanceMeters:     int(distanceKm.Mul(meters).IntPart()),
		VehicleType:        vehicle,
		VehicleMultiplier:  vm,
		BasePrice:          basePrice.IntPart(),
		TierRange:          tier.Label(),
		RatePerKm:          rate.IntPart(),
		DistanceCharge:     distanceCharge.IntPart(),
		Subtotal:           subtotal.IntPart(),
		SurgeMultiplier:    surge.Multiplier.Round(2),
		SurgeReasons:       surge.Reasons,
		PriceWithSurge:     withSurge.IntPart(),
		PlatformFeePercent: c.cfg.PlatformFeePercent,
		PlatformFee:        fee.IntPart(),
		MinChargeApplied:   minApplied,
		FinalPrice:         final.IntPart(),
	}, nil
}

// CalculateRoute prices a resolved route, carrying its duration and metadata onto the quote.
func (c *Calculator) CalculateRoute(distanceKm decimal.Decimal, durationMinutes int, route *RouteInfo, vehicle VehicleType, isRaining bool, now time.Time) (*Quote, error) {
	if durationMinutes < 0 {
		return nil, &InvalidInputError{Field: "duration_minutes", Reason: "must not be negative"}
	}

	q, err := c.Calculate(distanceKm, vehicle, isRaining, now)
	if err != nil {
		return nil, err
	}

	q.DurationMinutes = durationMinutes
	if route != nil {
		r := *route
		q.Route = &r
		if r.DistanceMeters > 0 {
			q.DistanceMeters = r.DistanceMeters
		}
	}

	return q, nil
}
