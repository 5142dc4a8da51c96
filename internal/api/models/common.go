// Package models provides request and response bodies for the delivery API.
package models

import (
	"fmt"
	"time"
)

// HealthStatus represents the health status of a service.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Timestamp is a time.Time that marshals as RFC3339.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler for Timestamp.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("timestamp must be a JSON string, got %s", data)
	}
	parsed, err := time.Parse(time.RFC3339, string(data[1:len(data)-1]))
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// requireCoordinate appends field errors for a missing or out of range coordinate.
func requireCoordinate(errs []FieldError, field string, v *float64, limit float64) []FieldError {
	switch {
	case v == nil:
		return append(errs, FieldError{Field: field, Message: "is required", Code: CodeRequired})
	case *v < -limit || *v > limit:
		return append(errs, FieldError{
			Field:   field,
			Message: fmt.Sprintf("must be between %g and %g", -limit, limit),
			Code:    CodeOutOfRange,
		})
	}
	return errs
}
