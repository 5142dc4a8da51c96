package geocoding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/simbok/delivery/pkg/geo"
)

const (
	// DefaultLimit is the number of hits returned when the caller does not ask for a count.
	DefaultLimit = 5
	// MaxLimit caps the number of hits a caller may ask for.
	MaxLimit = 20
)

// ServiceConfig holds configuration for the geocoding service.
type ServiceConfig struct {
	Geocoder Geocoder
	Logger   zerolog.Logger
}

// Service validates geocoding requests before handing them to the provider.
type Service struct {
	geocoder Geocoder
	logger   zerolog.Logger
}

// NewService creates a geocoding service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		geocoder: cfg.Geocoder,
		logger:   cfg.Logger,
	}
}

// Search returns places matching query. A non-positive limit means DefaultLimit.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidQuery)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	places, err := s.geocoder.Geocode(ctx, query, limit)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", query).Msg("geocoding failed")
		return nil, err
	}
	if len(places) == 0 {
		return nil, ErrNotFound
	}
	if len(places) > limit {
		places = places[:limit]
	}
	return places, nil
}

// Reverse returns the place nearest to p.
func (s *Service) Reverse(ctx context.Context, p geo.Point) (*Place, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	place, err := s.geocoder.Reverse(ctx, p)
	if err != nil {
		s.logger.Warn().Err(err).
			Float64("lat", p.Lat).
			Float64("lng", p.Lng).
			Msg("reverse geocoding failed")
		return nil, err
	}
	return place, nil
}
