package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors for pricing operations.
var (
	// ErrDistanceTooFar indicates the distance exceeds the configured maximum.
	ErrDistanceTooFar = errors.New("distance too far")
	// ErrInvalidInput indicates a missing or malformed calculation input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidConfig indicates a pricing configuration that fails validation.
	ErrInvalidConfig = errors.New("invalid pricing config")
	// ErrProfileNotFound indicates a named pricing profile does not exist.
	ErrProfileNotFound = errors.New("pricing profile not found")
)

// DistanceTooFarError is returned when a distance exceeds MaxKm.
type DistanceTooFarError struct {
	DistanceKm decimal.Decimal
	MaxKm      decimal.Decimal
}

func (e *DistanceTooFarError) Error() string {
	return fmt.Sprintf("distance too far: %s km exceeds the maximum of %s km", e.DistanceKm.String(), e.MaxKm.String())
}

func (e *DistanceTooFarError) Unwrap() error {
	return ErrDistanceTooFar
}

// InvalidInputError describes a rejected input field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return e.Field + " " + e.Reason
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// ConfigError describes a pricing config field that failed validation.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid pricing config: " + e.Field + " " + e.Reason
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}
