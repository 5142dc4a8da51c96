// Package backend builds the route resolver selected in configuration.
package backend

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/simbok/delivery/internal/config"
	"github.com/simbok/delivery/internal/geocoding"
	"github.com/simbok/delivery/internal/provider/resilience"
	"github.com/simbok/delivery/internal/routing"
	"github.com/simbok/delivery/internal/routing/googlemaps"
	"github.com/simbok/delivery/internal/routing/graphhopper"
	"github.com/simbok/delivery/internal/routing/haversine"
	"github.com/simbok/delivery/internal/routing/osrm"
)

// Backend is the configured routing provider plus the geocoder that comes with it.
type Backend struct {
	Provider routing.Provider
	// Geocoder is nil unless a GraphHopper API key is configured.
	Geocoder geocoding.Geocoder
}

// New builds the provider named by cfg.Provider. Network providers register their
// circuit breakers with registry when it is non-nil.
func New(cfg config.RoutingConfig, registry *resilience.Registry, logger zerolog.Logger) (*Backend, error) {
	var b Backend

	// GraphHopper also geocodes, so its client is built whenever a key exists.
	var gh *graphhopper.Client
	if cfg.GraphHopper.APIKey != "" {
		gh = graphhopper.NewClient(graphhopper.ClientConfig{
			APIKey:   cfg.GraphHopper.APIKey,
			BaseURL:  cfg.GraphHopper.BaseURL,
			Locale:   cfg.GraphHopper.Locale,
			Timeout:  cfg.Timeout,
			Registry: registry,
			Logger:   logger.With().Str("provider", graphhopper.ProviderName).Logger(),
		})
		b.Geocoder = gh
	}

	switch cfg.Provider {
	case config.ProviderHaversine:
		b.Provider = haversine.New(haversine.Config{
			MinutesPerKm: cfg.Haversine.MinutesPerKm,
			FixedMinutes: cfg.Haversine.FixedMinutes,
		})
	case config.ProviderOSRM:
		b.Provider = osrm.NewClient(osrm.ClientConfig{
			BaseURL:  cfg.OSRM.BaseURL,
			Profile:  cfg.OSRM.Profile,
			Timeout:  cfg.Timeout,
			Registry: registry,
			Logger:   logger.With().Str("provider", osrm.ProviderName).Logger(),
		})
	case config.ProviderGraphHopper:
		if gh == nil {
			return nil, fmt.Errorf("routing provider %q requires an API key", cfg.Provider)
		}
		b.Provider = gh
	case config.ProviderGoogleMaps:
		p, err := googlemaps.New(googlemaps.Config{
			APIKey:   cfg.GoogleMaps.APIKey,
			Language: cfg.GoogleMaps.Language,
			Timeout:  cfg.Timeout,
			Registry: registry,
			Logger:   logger.With().Str("provider", googlemaps.ProviderName).Logger(),
		})
		if err != nil {
			return nil, err
		}
		b.Provider = p
	default:
		return nil, fmt.Errorf("unknown routing provider %q", cfg.Provider)
	}

	return &b, nil
}

// NewService wraps the backend provider in a routing service. Network providers
// are memoized per grid cell; haversine is computed fresh for every request so
// a quote depends only on its own coordinates.
func (b *Backend) NewService(cfg config.RoutingConfig, logger zerolog.Logger) (*routing.Service, error) {
	cacheTTL := cfg.CacheTTL
	if cfg.Provider == config.ProviderHaversine {
		cacheTTL = -1
	}

	return routing.NewService(routing.ServiceConfig{
		Provider:        b.Provider,
		Logger:          logger,
		CacheTTL:        cacheTTL,
		CacheGridSize:   cfg.CacheGridSize,
		StaleIfErrorTTL: cfg.StaleIfErrorTTL,
	})
}
