package pricing

import (
	"context"
	"time"
)

// Profile is a named tariff.
type Profile struct {
	Name      string
	Config    Config
	UpdatedAt time.Time
}

// Repository defines the interface for pricing profile persistence.
type Repository interface {
	// Get retrieves a profile by name.
	// Returns ErrProfileNotFound if no profile has that name.
	Get(ctx context.Context, name string) (*Profile, error)

	// Save creates or replaces a profile.
	Save(ctx context.Context, profile *Profile) error

	// List returns all profile names in ascending order.
	List(ctx context.Context) ([]string, error)
}

// LoadCalculator builds a calculator from a stored profile.
func LoadCalculator(ctx context.Context, repo Repository, name string) (*Calculator, error) {
	profile, err := repo.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return NewCalculator(profile.Config)
}
