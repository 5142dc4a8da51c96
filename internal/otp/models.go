// Package otp issues and verifies one-time login codes sent to phone numbers.
package otp

import (
	"errors"
	"time"
)

// Sentinel errors for OTP operations.
var (
	// ErrCodeNotFound indicates no pending code exists for the phone, or it expired.
	ErrCodeNotFound = errors.New("otp not found or expired")
	// ErrCodeMismatch indicates the submitted code differs from the pending one.
	ErrCodeMismatch = errors.New("otp does not match")
	// ErrInvalidPhone indicates the phone number cannot be normalized.
	ErrInvalidPhone = errors.New("invalid phone number")
)

// Challenge describes a code that was issued.
type Challenge struct {
	Phone     string    `json:"phone"`
	ExpiresAt time.Time `json:"expires_at"`
	// Code is only populated when the service is configured to expose it (development).
	Code string `json:"otp,omitempty"`
}
