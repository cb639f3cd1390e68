package weather

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Provider fetches weather snapshots from an upstream source.
type Provider interface {
	// GetSnapshot returns today's weather at a location.
	GetSnapshot(ctx context.Context, lat, lon float64) (*Snapshot, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// CacheTTL is how long a snapshot is served without refetching (default: 10 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the cache cell size in degrees (default: 0.1).
	// Plots within the same cell share one upstream call.
	CacheGridSize float64

	// StaleIfErrorTTL is how long an expired snapshot may still be served
	// while the provider is failing (default: 1 hour).
	StaleIfErrorTTL time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Service provides weather snapshots with caching.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	now             func() time.Time
	flight          singleflight.Group

	mu              sync.RWMutex
	cache           map[string]*cachedSnapshot
	lastCleanup     time.Time
	cleanupInterval time.Duration
	hits            atomic.Int64
	misses          atomic.Int64
	staleServed     atomic.Int64
}

type cachedSnapshot struct {
	snapshot  *Snapshot
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.1 // ~11km at equator
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = time.Hour
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		now:             now,
		cache:           make(map[string]*cachedSnapshot),
		cleanupInterval: 5 * time.Minute,
	}
}

// GetSnapshot returns the weather at a location, from cache when fresh.
func (s *Service) GetSnapshot(ctx context.Context, lat, lon float64) (*Snapshot, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	key := s.cacheKey(lat, lon)

	if snap, ok := s.fresh(key); ok {
		s.hits.Add(1)
		return snap, nil
	}

	return s.fetch(ctx, lat, lon, key)
}

// fetch calls the provider without holding the cache lock. Concurrent
// misses for the same grid cell share one upstream call.
func (s *Service) fetch(ctx context.Context, lat, lon float64, key string) (*Snapshot, error) {
	v, err, _ := s.flight.Do(key, func() (any, error) {
		if snap, ok := s.fresh(key); ok {
			s.hits.Add(1)
			return snap, nil
		}
		s.misses.Add(1)

		s.logger.Debug().
			Float64("lat", lat).
			Float64("lon", lon).
			Str("provider", s.provider.Name()).
			Msg("fetching weather from provider")

		snap, err := s.provider.GetSnapshot(ctx, lat, lon)
		if err != nil {
			s.logger.Error().Err(err).
				Float64("lat", lat).
				Float64("lon", lon).
				Str("provider", s.provider.Name()).
				Msg("failed to fetch weather")

			if stale, fetchedAt, ok := s.stale(key); ok {
				s.staleServed.Add(1)
				s.logger.Warn().
					Time("fetched_at", fetchedAt).
					Msg("serving stale weather data due to provider error")
				return stale, nil
			}

			return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		now := s.now()
		snap.FetchedAt = now
		s.cache[key] = &cachedSnapshot{
			snapshot:  snap,
			fetchedAt: now,
			expiresAt: now.Add(s.cacheTTL),
		}
		s.cleanupIfNeeded(now)

		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (s *Service) fresh(key string) (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cached, ok := s.cache[key]; ok && s.now().Before(cached.expiresAt) {
		return cached.snapshot, true
	}
	return nil, false
}

func (s *Service) stale(key string) (*Snapshot, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cached, ok := s.cache[key]; ok && s.now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
		return cached.snapshot, cached.fetchedAt, true
	}
	return nil, time.Time{}, false
}

// cacheKey groups nearby points into grid cells.
func (s *Service) cacheKey(lat, lon float64) string {
	gridLat := math.Floor(lat/s.cacheGridSize) * s.cacheGridSize
	gridLon := math.Floor(lon/s.cacheGridSize) * s.cacheGridSize
	return fmt.Sprintf("%.2f:%.2f", gridLat, gridLon)
}

func (s *Service) cleanupIfNeeded(now time.Time) {
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}
	s.lastCleanup = now

	expired := 0
	for key, cached := range s.cache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired weather cache entries")
	}
}

// InvalidateCache clears all cached snapshots.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedSnapshot)
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Entries      int
	FreshEntries int
	Hits         int64
	Misses       int64
	StaleServed  int64
	Provider     string
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	fresh := 0
	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			fresh++
		}
	}

	return CacheStats{
		Entries:      len(s.cache),
		FreshEntries: fresh,
		Hits:         s.hits.Load(),
		Misses:       s.misses.Load(),
		StaleServed:  s.staleServed.Load(),
		Provider:     s.provider.Name(),
	}
}

// ProviderName returns the upstream provider's name.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
