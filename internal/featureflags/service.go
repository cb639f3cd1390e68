package featureflags

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// CacheTTL is how long flags read from the repository are trusted. Default 1m.
	CacheTTL     time.Duration
	DefaultFlags map[string]*Flag
	Now          func() time.Time
}

// Service evaluates flags with an in-memory cache and falls back to
// defaults when the repository is unavailable.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	cacheTTL time.Duration
	defaults map[string]*Flag
	now      func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedFlag
}

type cachedFlag struct {
	flag      *Flag
	expiresAt time.Time
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = time.Minute
	}
	defaults := cfg.DefaultFlags
	if defaults == nil {
		defaults = DefaultFlags()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     cfg.Repository,
		logger:   cfg.Logger,
		cacheTTL: ttl,
		defaults: defaults,
		now:      now,
		cache:    make(map[string]cachedFlag),
	}
}

// GetFlag returns the flag, reading through the cache. A missing flag falls
// back to its default; nil is returned for unknown keys.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	if s == nil {
		return nil
	}

	s.mu.RLock()
	entry, ok := s.cache[key]
	s.mu.RUnlock()
	if ok && s.now().Before(entry.expiresAt) {
		return entry.flag
	}

	if s.repo != nil {
		flag, err := s.repo.Get(ctx, key)
		switch {
		case err == nil:
			s.store(flag)
			return flag
		case !errors.Is(err, ErrFlagNotFound):
			s.logger.Warn().Err(err).Str("flag", key).Msg("failed to get feature flag from repository")
			if ok {
				return entry.flag
			}
		}
	}

	return s.defaults[key]
}

// GetAllFlags returns defaults overlaid with stored flags.
func (s *Service) GetAllFlags(ctx context.Context) map[string]*Flag {
	result := make(map[string]*Flag, len(s.defaults))
	for k, v := range s.defaults {
		result[k] = v
	}
	if s.repo == nil {
		return result
	}

	flags, err := s.repo.All(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to get feature flags from repository, using defaults")
		return result
	}
	for k, v := range flags {
		result[k] = v
		s.store(v)
	}
	return result
}

// SetFlags validates and stores updates, then refreshes the cache.
func (s *Service) SetFlags(ctx context.Context, updates []FlagUpdate) error {
	now := s.now().UTC()
	flags := make([]*Flag, 0, len(updates))
	for _, u := range updates {
		if err := ValidateUpdate(u); err != nil {
			return err
		}
		flags = append(flags, &Flag{Key: u.Key, Value: normalizeValue(u.Value), UpdatedAt: now})
	}

	if err := s.repo.Save(ctx, flags...); err != nil {
		return err
	}
	for _, f := range flags {
		s.store(f)
	}
	return nil
}

// ResetFlag removes the stored override for key so its default applies again.
func (s *Service) ResetFlag(ctx context.Context, key string) error {
	if _, ok := s.defaults[key]; !ok {
		return fmt.Errorf("%w: unknown flag %q", ErrInvalidFlag, key)
	}
	if err := s.repo.Reset(ctx, key); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
	return nil
}

// InvalidateCache drops all cached flags.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]cachedFlag)
}

// IsEnabled reports whether a boolean flag is on.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	return s.GetFlag(ctx, key).BoolValue(false)
}

// RequireMeasuredRadiation reports whether the monthly radiation estimate is disallowed.
func (s *Service) RequireMeasuredRadiation(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagRequireMeasuredRadiation)
}

// AdvisoryPaused reports whether the scheduled advisory run is paused.
func (s *Service) AdvisoryPaused(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagPauseAdvisoryJob)
}

// AdvisoryConcurrency returns the advisory worker pool size.
func (s *Service) AdvisoryConcurrency(ctx context.Context) int {
	n := s.GetFlag(ctx, FlagAdvisoryConcurrency).IntValue(4)
	if n < 1 {
		return 1
	}
	return n
}

func (s *Service) store(f *Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[f.Key] = cachedFlag{flag: f, expiresAt: s.now().Add(s.cacheTTL)}
}

// normalizeValue stores integral JSON numbers as ints so they compare equal across repositories.
func normalizeValue(v any) any {
	if n, ok := v.(float64); ok && n == float64(int(n)) {
		return int(n)
	}
	return v
}
