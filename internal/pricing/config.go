package pricing

import (
	"fmt"
	"time"
	// Embedded zone database so DefaultTimezone resolves on minimal images.
	_ "time/tzdata"

	"github.com/shopspring/decimal"
)

// DefaultTimezone is the zone surge hours and weekends are evaluated in.
const DefaultTimezone = "Asia/Jakarta"

// Config holds the tariff. It is copied by NewCalculator and never mutated afterwards.
type Config struct {
	BasePrice decimal.Decimal `json:"base_price"`
	// PricePerKm is the legacy flat rate, used as a single 0-999 km tier when PriceTiers is empty.
	PricePerKm         decimal.Decimal `json:"price_per_km"`
	PriceTiers         []Tier          `json:"price_tiers"`
	MinDistanceKm      decimal.Decimal `json:"min_distance_km"`
	MaxDistanceKm      decimal.Decimal `json:"max_distance_km"`
	MinCharge          decimal.Decimal `json:"min_charge"`
	PlatformFeePercent decimal.Decimal `json:"platform_fee_percent"`
	SurgeHours         []int           `json:"surge_hours"`
	SurgeMultiplier    decimal.Decimal `json:"surge_multiplier"`
	RainMultiplier     decimal.Decimal `json:"rain_multiplier"`
	PeakDayMultiplier  decimal.Decimal `json:"peak_day_multiplier"`
	CarMultiplier      decimal.Decimal `json:"car_multiplier"`
	Timezone           string          `json:"timezone"`
}

// DefaultConfig returns the standard SIMBOK tariff.
func DefaultConfig() Config {
	return Config{
		BasePrice:          decimal.NewFromInt(5000),
		PricePerKm:         decimal.NewFromInt(2500),
		MinDistanceKm:      decimal.RequireFromString("0.5"),
		MaxDistanceKm:      decimal.NewFromInt(100),
		MinCharge:          decimal.NewFromInt(7000),
		PlatformFeePercent: decimal.NewFromInt(10),
		SurgeHours:         []int{7, 8, 12, 13, 18, 19},
		SurgeMultiplier:    decimal.RequireFromString("1.3"),
		RainMultiplier:     decimal.RequireFromString("1.2"),
		PeakDayMultiplier:  decimal.RequireFromString("1.1"),
		CarMultiplier:      decimal.RequireFromString("1.5"),
		Timezone:           DefaultTimezone,
		PriceTiers: []Tier{
			NewTier(0, 5, 2500),
			NewTier(5, 15, 2000),
			NewTier(15, 30, 1800),
			NewTier(30, 999, 1500),
		},
	}
}

// NewTier builds a tier from whole-number bounds and rate.
func NewTier(minKm, maxKm, ratePerKm int64) Tier {
	return Tier{
		MinKm:     decimal.NewFromInt(minKm),
		MaxKm:     decimal.NewFromInt(maxKm),
		RatePerKm: decimal.NewFromInt(ratePerKm),
	}
}

// legacyMaxKm bounds the single tier synthesized from PricePerKm.
var legacyMaxKm = decimal.NewFromInt(999)

// EffectiveTiers returns PriceTiers, or the legacy single tier when none are configured.
func (c Config) EffectiveTiers() []Tier {
	if len(c.PriceTiers) > 0 {
		return c.PriceTiers
	}
	return []Tier{{MinKm: decimal.Zero, MaxKm: legacyMaxKm, RatePerKm: c.PricePerKm}}
}

// Validate checks the config. Tiers must be ascending and non-overlapping; gaps between
// tiers are allowed and distances falling in one are priced with the last tier.
func (c Config) Validate() error {
	one := decimal.NewFromInt(1)

	nonNegative := []struct {
		field string
		value decimal.Decimal
	}{
		{"base_price", c.BasePrice},
		{"price_per_km", c.PricePerKm},
		{"min_distance_km", c.MinDistanceKm},
		{"min_charge", c.MinCharge},
		{"platform_fee_percent", c.PlatformFeePercent},
	}
	for _, f := range nonNegative {
		if f.value.IsNegative() {
			return &ConfigError{Field: f.field, Reason: "must not be negative"}
		}
	}

	if !c.MaxDistanceKm.IsPositive() {
		return &ConfigError{Field: "max_distance_km", Reason: "must be positive"}
	}
	if c.MinDistanceKm.GreaterThan(c.MaxDistanceKm) {
		return &ConfigError{Field: "min_distance_km", Reason: "must not exceed max_distance_km"}
	}

	multipliers := []struct {
		field string
		value decimal.Decimal
	}{
		{"surge_multiplier", c.SurgeMultiplier},
		{"rain_multiplier", c.RainMultiplier},
		{"peak_day_multiplier", c.PeakDayMultiplier},
		{"car_multiplier", c.CarMultiplier},
	}
	for _, m := range multipliers {
		if m.value.LessThan(one) {
			return &ConfigError{Field: m.field, Reason: "must be at least 1"}
		}
	}

	for _, h := range c.SurgeHours {
		if h < 0 || h > 23 {
			return &ConfigError{Field: "surge_hours", Reason: fmt.Sprintf("hour %d outside 0-23", h)}
		}
	}

	for i, t := range c.PriceTiers {
		field := fmt.Sprintf("price_tiers[%d]", i)
		if t.MinKm.IsNegative() {
			return &ConfigError{Field: field, Reason: "min_km must not be negative"}
		}
		if !t.MinKm.LessThan(t.MaxKm) {
			return &ConfigError{Field: field, Reason: "min_km must be below max_km"}
		}
		if t.RatePerKm.IsNegative() {
			return &ConfigError{Field: field, Reason: "rate_per_km must not be negative"}
		}
		if i > 0 && t.MinKm.LessThan(c.PriceTiers[i-1].MaxKm) {
			return &ConfigError{Field: field, Reason: "overlaps or precedes the previous tier"}
		}
	}

	if _, err := c.location(); err != nil {
		return &ConfigError{Field: "timezone", Reason: err.Error()}
	}

	return nil
}

func (c Config) location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.LoadLocation(DefaultTimezone)
	}
	return time.LoadLocation(c.Timezone)
}

// clone returns a deep copy so callers cannot mutate a calculator's tariff.
func (c Config) clone() Config {
	out := c
	out.PriceTiers = append([]Tier(nil), c.PriceTiers...)
	out.SurgeHours = append([]int(nil), c.SurgeHours...)
	return out
}
