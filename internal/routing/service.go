package routing

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"
)

const instrumentationName = "github.com/simbok/delivery/internal/routing"

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Provider is the routing data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Meter records cache and provider metrics (default: global meter).
	Meter metric.Meter

	// CacheTTL is how long to cache routing data (default: 5 minutes).
	// A negative value disables caching.
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.001 ~ 110m).
	// Points within the same grid cell share cached data.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 15 minutes).
	StaleIfErrorTTL time.Duration

	// CleanupInterval is how often to clean up expired entries (default: 5 minutes).
	CleanupInterval time.Duration

	// Now overrides the clock (default: time.Now).
	Now func() time.Time
}

// Service resolves routes through a provider, memoizing directions per grid cell.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	metrics         *serviceMetrics
	cacheEnabled    bool
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	// group collapses concurrent misses on one cache key into a single
	// provider call. Misses on different keys never wait on each other.
	group singleflight.Group

	mu          sync.RWMutex
	cache       map[string]*cachedDirections
	lastCleanup time.Time
}

type cachedDirections struct {
	response  *DirectionsResponse
	fetchedAt time.Time
	expiresAt time.Time
}

type serviceMetrics struct {
	cacheHits        metric.Int64Counter
	cacheMisses      metric.Int64Counter
	providerErrors   metric.Int64Counter
	providerDuration metric.Float64Histogram
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) (*Service, error) {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.001 // ~110m
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 15 * time.Minute
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 5 * time.Minute
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	meter := cfg.Meter
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	metrics, err := newServiceMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("create routing metrics: %w", err)
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		metrics:         metrics,
		cacheEnabled:    cacheTTL > 0,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		cleanupInterval: cleanupInterval,
		now:             now,
		cache:           make(map[string]*cachedDirections),
	}, nil
}

func newServiceMetrics(meter metric.Meter) (*serviceMetrics, error) {
	cacheHits, err := meter.Int64Counter("routing.cache.hits",
		metric.WithDescription("Directions served from cache"))
	if err != nil {
		return nil, err
	}

	cacheMisses, err := meter.Int64Counter("routing.cache.misses",
		metric.WithDescription("Directions fetched from the provider"))
	if err != nil {
		return nil, err
	}

	providerErrors, err := meter.Int64Counter("routing.provider.errors",
		metric.WithDescription("Failed provider requests"))
	if err != nil {
		return nil, err
	}

	providerDuration, err := meter.Float64Histogram("routing.provider.duration",
		metric.WithDescription("Provider request duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &serviceMetrics{
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		providerErrors:   providerErrors,
		providerDuration: providerDuration,
	}, nil
}

// Resolve fetches directions and reduces them to the route selected by req.Preference.
func (s *Service) Resolve(ctx context.Context, req DirectionsRequest) (*Resolution, error) {
	resp, err := s.GetDirections(ctx, req)
	if err != nil {
		return nil, err
	}

	res, err := Summarize(resp, req.Preference)
	if err != nil {
		return nil, err
	}
	if res.Provider == "" {
		res.Provider = s.provider.Name()
	}
	return res, nil
}

// GetDirections returns route directions between two points.
// Uses cached data if available and not expired.
func (s *Service) GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	if err := req.Origin.Validate(); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      fmt.Errorf("%w: %v", ErrInvalidCoordinates, err),
		}
	}
	if err := req.Destination.Validate(); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      fmt.Errorf("%w: %v", ErrInvalidCoordinates, err),
		}
	}

	if req.Preference == "" {
		req.Preference = PreferenceFastest
	}

	if !s.cacheEnabled {
		return s.callProvider(ctx, req)
	}

	cacheKey := s.cacheKey(req)

	if resp, ok := s.fresh(cacheKey); ok {
		s.metrics.cacheHits.Add(ctx, 1, s.providerAttr())
		s.logger.Debug().
			Str("cache_key", cacheKey).
			Msg("cache hit for directions")
		return resp, nil
	}

	return s.fetchDirections(ctx, req, cacheKey)
}

// fetchDirections fetches directions from provider and updates cache.
// The cache lock is never held across the provider call.
func (s *Service) fetchDirections(ctx context.Context, req DirectionsRequest, cacheKey string) (*DirectionsResponse, error) {
	ch := s.group.DoChan(cacheKey, func() (any, error) {
		// Another caller may have filled the entry while this one waited.
		if resp, ok := s.fresh(cacheKey); ok {
			s.metrics.cacheHits.Add(ctx, 1, s.providerAttr())
			s.logger.Debug().
				Str("cache_key", cacheKey).
				Msg("cache hit after double-check")
			return resp, nil
		}

		s.metrics.cacheMisses.Add(ctx, 1, s.providerAttr())

		resp, err := s.callProvider(ctx, req)
		if err != nil {
			// Check for stale data (stale-if-error pattern)
			if cached, ok := s.staleIfError(cacheKey); ok {
				s.logger.Warn().
					Time("fetched_at", cached.fetchedAt).
					Str("cache_key", cacheKey).
					Msg("serving stale directions data due to provider error")
				return cached.response, nil
			}
			return nil, err
		}

		now := s.now()
		s.mu.Lock()
		s.cache[cacheKey] = &cachedDirections{
			response:  resp,
			fetchedAt: now,
			expiresAt: now.Add(s.cacheTTL),
		}
		s.cleanupIfNeeded()
		s.mu.Unlock()

		s.logger.Debug().
			Str("cache_key", cacheKey).
			Int("route_count", len(resp.Routes)).
			Msg("cached directions response")

		return resp, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*DirectionsResponse), nil
	}
}

func (s *Service) fresh(cacheKey string) (*DirectionsResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cached, ok := s.cache[cacheKey]
	if !ok || !s.now().Before(cached.expiresAt) {
		return nil, false
	}
	return cached.response, true
}

func (s *Service) staleIfError(cacheKey string) (*cachedDirections, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cached, ok := s.cache[cacheKey]
	if !ok || !s.now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
		return nil, false
	}
	return cached, true
}

// callProvider performs one provider request, recording its duration and outcome.
func (s *Service) callProvider(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	s.logger.Debug().
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lng", req.Origin.Lng).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lng", req.Destination.Lng).
		Str("profile", string(req.Profile)).
		Str("preference", string(req.Preference)).
		Str("provider", s.provider.Name()).
		Msg("fetching directions from provider")

	start := s.now()
	resp, err := s.provider.GetDirections(ctx, req)
	s.metrics.providerDuration.Record(ctx, s.now().Sub(start).Seconds(), s.providerAttr())

	if err != nil {
		s.metrics.providerErrors.Add(ctx, 1, s.providerAttr())
		s.logger.Error().Err(err).
			Float64("origin_lat", req.Origin.Lat).
			Float64("origin_lng", req.Origin.Lng).
			Float64("dest_lat", req.Destination.Lat).
			Float64("dest_lng", req.Destination.Lng).
			Str("profile", string(req.Profile)).
			Msg("failed to fetch directions")
		return nil, err
	}

	return resp, nil
}

func (s *Service) providerAttr() metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("provider", s.provider.Name()))
}

// cacheKey generates a cache key for a routing request.
// Uses grid-based quantization for both origin and destination.
// Format: {profile}:{preference}:{gridOriginLat},{gridOriginLng}:{gridDestLat},{gridDestLng}.
func (s *Service) cacheKey(req DirectionsRequest) string {
	return fmt.Sprintf("%s:%s:%s:%s",
		req.Profile,
		req.Preference,
		s.gridCell(req.Origin.Lat, req.Origin.Lng),
		s.gridCell(req.Destination.Lat, req.Destination.Lng),
	)
}

func (s *Service) gridCell(lat, lng float64) string {
	return fmt.Sprintf("%d,%d",
		int64(math.Floor(lat/s.cacheGridSize)),
		int64(math.Floor(lng/s.cacheGridSize)),
	)
}

// cleanupIfNeeded removes expired entries if cleanup interval has passed.
// Callers hold s.mu.
func (s *Service) cleanupIfNeeded() {
	now := s.now()
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}

	s.lastCleanup = now
	expired := 0

	for key, cached := range s.cache {
		// Remove entries that are past the stale-if-error window
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired routing cache entries")
	}
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedDirections)
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	fresh := 0
	stale := 0

	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			fresh++
		} else if now.Before(c.fetchedAt.Add(s.staleIfErrorTTL)) {
			stale++
		}
	}

	return CacheStats{
		TotalEntries: len(s.cache),
		FreshEntries: fresh,
		StaleEntries: stale,
		Provider:     s.provider.Name(),
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	Provider     string
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}
