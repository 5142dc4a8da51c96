package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// Profiles live in pricing_profiles(name text primary key, config jsonb, updated_at timestamptz).
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL pricing profile repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a profile by name.
func (r *PostgresRepository) Get(ctx context.Context, name string) (*Profile, error) {
	query := `
		SELECT name, config, updated_at
		FROM pricing_profiles
		WHERE name = $1
	`

	var (
		profile Profile
		raw     []byte
	)
	err := r.pool.QueryRow(ctx, query, name).Scan(&profile.Name, &raw, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	profile.Config, err = decodeProfileConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("decode pricing profile %q: %w", name, err)
	}

	return &profile, nil
}

// Save creates or replaces a profile.
func (r *PostgresRepository) Save(ctx context.Context, profile *Profile) error {
	if err := profile.Config.Validate(); err != nil {
		return err
	}

	raw, err := json.Marshal(profile.Config)
	if err != nil {
		return fmt.Errorf("encode pricing profile: %w", err)
	}

	query := `
		INSERT INTO pricing_profiles (name, config, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET
			config = EXCLUDED.config,
			updated_at = NOW()
	`

	_, err = r.pool.Exec(ctx, query, profile.Name, raw)
	return err
}

// List returns all profile names in ascending order.
func (r *PostgresRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM pricing_profiles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// decodeProfileConfig overlays stored JSON on the defaults, so a profile only needs
// the fields it changes. Arrays such as price_tiers replace the default wholesale.
func decodeProfileConfig(raw []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
