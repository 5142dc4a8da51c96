// Package pricing computes local delivery quotes from a route distance.
//
// A quote is base price plus a tiered per-km distance charge, both scaled by a
// vehicle multiplier, then multiplied by the active surge factors (peak hour,
// rain, weekend), topped up with a platform fee, floored at the minimum charge
// and rounded up to the next 100 rupiah.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/simbok/delivery/pkg/geo"
)

// VehicleType is the courier vehicle class.
type VehicleType string

const (
	VehicleMotor VehicleType = "motor"
	VehicleMobil VehicleType = "mobil"
)

// ParseVehicleType parses a vehicle type, ignoring case and surrounding spaces.
func ParseVehicleType(s string) (VehicleType, error) {
	switch VehicleType(strings.ToLower(strings.TrimSpace(s))) {
	case VehicleMotor:
		return VehicleMotor, nil
	case VehicleMobil:
		return VehicleMobil, nil
	case "":
		return "", &InvalidInputError{Field: "vehicle_type", Reason: "is required"}
	default:
		return "", &InvalidInputError{Field: "vehicle_type", Reason: "must be one of motor, mobil"}
	}
}

// Valid reports whether v is a known vehicle type.
func (v VehicleType) Valid() bool {
	return v == VehicleMotor || v == VehicleMobil
}

// Tier is a distance band with its own per-km rate.
// A distance d falls in the tier when MinKm <= d < MaxKm.
type Tier struct {
	MinKm     decimal.Decimal `json:"min_km"`
	MaxKm     decimal.Decimal `json:"max_km"`
	RatePerKm decimal.Decimal `json:"rate_per_km"`
}

// Contains reports whether distanceKm falls inside the tier.
func (t Tier) Contains(distanceKm decimal.Decimal) bool {
	return t.MinKm.LessThanOrEqual(distanceKm) && distanceKm.LessThan(t.MaxKm)
}

// Label returns the display range, e.g. "15-30 km".
func (t Tier) Label() string {
	return t.MinKm.String() + "-" + t.MaxKm.String() + " km"
}

// Surge is the composed surge multiplier and the reasons that produced it.
type Surge struct {
	Multiplier decimal.Decimal
	Reasons    []string
}

// Active reports whether any surge factor applied.
func (s Surge) Active() bool {
	return s.Multiplier.GreaterThan(decimal.NewFromInt(1))
}

// RouteInfo is route metadata attached to a quote when the distance came from a resolver.
type RouteInfo struct {
	Method         string
	DistanceMeters int
	RoadNames      []string
	TotalRoads     int
	Alternatives   []Alternative
	Geometry       []geo.Point
	// Approximate marks a straight-line estimate rather than a routed distance.
	Approximate bool
}

// Alternative summarizes a non-selected route relative to the selected one.
type Alternative struct {
	RouteNumber     int
	DistanceKm      decimal.Decimal
	DurationMinutes int
	TimeDiffMinutes int
	DistanceDiffKm  decimal.Decimal
}

// Quote is an itemized delivery price. All money fields are whole rupiah,
// itemized lines truncated toward zero and FinalPrice a multiple of 100.
type Quote struct {
	DistanceKm         decimal.Decimal
	DistanceMeters     int
	DurationMinutes    int
	VehicleType        VehicleType
	VehicleMultiplier  decimal.Decimal
	BasePrice          int64
	TierRange          string
	RatePerKm          int64
	DistanceCharge     int64
	Subtotal           int64
	SurgeMultiplier    decimal.Decimal
	SurgeReasons       []string
	PriceWithSurge     int64
	PlatformFeePercent decimal.Decimal
	PlatformFee        int64
	MinChargeApplied   bool
	FinalPrice         int64
	Route              *RouteInfo
}
