package otp

import (
	"context"
	"time"
)

// Store keeps one pending code per phone number until it expires.
type Store interface {
	// Save stores code for phone, replacing any pending code.
	Save(ctx context.Context, phone, code string, ttl time.Duration) error
	// Consume checks code against the pending code for phone and removes it on a
	// match, as one atomic step: of several concurrent calls with the right code
	// exactly one succeeds. It returns ErrCodeNotFound when nothing is pending or
	// the code expired, and ErrCodeMismatch (keeping the pending code) otherwise.
	Consume(ctx context.Context, phone, code string) error
	// Delete removes the pending code for phone. Deleting a missing code is not an error.
	Delete(ctx context.Context, phone string) error
}
