package weather_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartirrigation/smartirrigation/internal/weather"
)

type mockProvider struct {
	mu        sync.Mutex
	callCount int
	err       error
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) GetSnapshot(_ context.Context, lat, lon float64) (*weather.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++

	if m.err != nil {
		return nil, m.err
	}

	radiation := 19.5
	return &weather.Snapshot{
		Lat:            lat,
		Lon:            lon,
		ObservedAt:     time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		Temperature:    27,
		Humidity:       60,
		MaxTemperature: 33,
		MinTemperature: 24,
		SolarRadiation: &radiation,
	}, nil
}

func (m *mockProvider) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func (m *mockProvider) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(p weather.Provider, clock *fakeClock) *weather.Service {
	return weather.NewService(weather.ServiceConfig{
		Provider:        p,
		Logger:          zerolog.Nop(),
		CacheTTL:        10 * time.Minute,
		StaleIfErrorTTL: time.Hour,
		Now:             clock.Now,
	})
}

func TestService_GetSnapshot(t *testing.T) {
	provider := &mockProvider{}
	svc := newTestService(provider, &fakeClock{now: time.Now()})

	snap, err := svc.GetSnapshot(context.Background(), 6.37, 2.39)
	require.NoError(t, err)

	assert.Equal(t, 6.37, snap.Lat)
	assert.Equal(t, 33.0, snap.MaxTemperature)
	assert.False(t, snap.FetchedAt.IsZero())
	assert.Equal(t, 1, provider.calls())
}

func TestService_GetSnapshot_Caching(t *testing.T) {
	provider := &mockProvider{}
	clock := &fakeClock{now: time.Now()}
	svc := newTestService(provider, clock)
	ctx := context.Background()

	_, err := svc.GetSnapshot(ctx, 6.37, 2.39)
	require.NoError(t, err)
	_, err = svc.GetSnapshot(ctx, 6.37, 2.39)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls())

	clock.Advance(11 * time.Minute)
	_, err = svc.GetSnapshot(ctx, 6.37, 2.39)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls())

	stats := svc.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, "mock", stats.Provider)
}

func TestService_GetSnapshot_GridSharing(t *testing.T) {
	provider := &mockProvider{}
	svc := newTestService(provider, &fakeClock{now: time.Now()})
	ctx := context.Background()

	_, err := svc.GetSnapshot(ctx, 6.371, 2.391)
	require.NoError(t, err)
	_, err = svc.GetSnapshot(ctx, 6.372, 2.392)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls(), "same grid cell")

	_, err = svc.GetSnapshot(ctx, 7.5, 2.39)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls(), "different grid cell")
}

func TestService_GetSnapshot_InvalidCoordinates(t *testing.T) {
	provider := &mockProvider{}
	svc := newTestService(provider, &fakeClock{now: time.Now()})

	tests := []struct {
		name     string
		lat, lon float64
	}{
		{"lat too high", 91, 0},
		{"lat too low", -91, 0},
		{"lon too high", 0, 181},
		{"lon too low", 0, -181},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetSnapshot(context.Background(), tt.lat, tt.lon)
			assert.ErrorIs(t, err, weather.ErrInvalidCoordinates)
		})
	}
	assert.Equal(t, 0, provider.calls())
}

func TestService_GetSnapshot_ProviderError(t *testing.T) {
	provider := &mockProvider{err: errors.New("boom")}
	svc := newTestService(provider, &fakeClock{now: time.Now()})

	_, err := svc.GetSnapshot(context.Background(), 6.37, 2.39)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "boom")
}

func TestService_GetSnapshot_StaleOnError(t *testing.T) {
	provider := &mockProvider{}
	clock := &fakeClock{now: time.Now()}
	svc := newTestService(provider, clock)
	ctx := context.Background()

	first, err := svc.GetSnapshot(ctx, 6.37, 2.39)
	require.NoError(t, err)

	provider.setErr(errors.New("upstream down"))
	clock.Advance(30 * time.Minute)

	stale, err := svc.GetSnapshot(ctx, 6.37, 2.39)
	require.NoError(t, err)
	assert.Same(t, first, stale)
	assert.Equal(t, int64(1), svc.CacheStats().StaleServed)

	clock.Advance(time.Hour)
	_, err = svc.GetSnapshot(ctx, 6.37, 2.39)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
}

func TestService_InvalidateCache(t *testing.T) {
	provider := &mockProvider{}
	svc := newTestService(provider, &fakeClock{now: time.Now()})
	ctx := context.Background()

	_, err := svc.GetSnapshot(ctx, 6.37, 2.39)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.CacheStats().Entries)

	svc.InvalidateCache()
	assert.Equal(t, 0, svc.CacheStats().Entries)

	_, err = svc.GetSnapshot(ctx, 6.37, 2.39)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls())
}

func TestService_ConcurrentAccess(t *testing.T) {
	provider := &mockProvider{}
	svc := newTestService(provider, &fakeClock{now: time.Now()})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GetSnapshot(context.Background(), 6.37, 2.39)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, provider.calls())
	assert.Equal(t, "mock", svc.ProviderName())
}

// gatedProvider blocks every call until release is closed.
type gatedProvider struct {
	mockProvider
	started chan struct{}
	release chan struct{}
}

func (g *gatedProvider) GetSnapshot(ctx context.Context, lat, lon float64) (*weather.Snapshot, error) {
	g.started <- struct{}{}
	<-g.release
	return g.mockProvider.GetSnapshot(ctx, lat, lon)
}

func TestService_GetSnapshot_DistinctCellsFetchInParallel(t *testing.T) {
	provider := &gatedProvider{started: make(chan struct{}, 2), release: make(chan struct{})}
	svc := newTestService(provider, &fakeClock{now: time.Now()})

	var wg sync.WaitGroup
	for _, loc := range [][2]float64{{6.37, 2.39}, {9.30, 2.63}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GetSnapshot(context.Background(), loc[0], loc[1])
			assert.NoError(t, err)
		}()
	}

	// Both upstream calls must be in flight before either is released.
	for range 2 {
		select {
		case <-provider.started:
		case <-time.After(2 * time.Second):
			close(provider.release)
			t.Fatal("second grid cell waited on the first provider call")
		}
	}
	close(provider.release)
	wg.Wait()

	assert.Equal(t, 2, provider.calls())
}

func TestService_GetSnapshot_SameCellSharesFetch(t *testing.T) {
	provider := &gatedProvider{started: make(chan struct{}, 10), release: make(chan struct{})}
	svc := newTestService(provider, &fakeClock{now: time.Now()})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GetSnapshot(context.Background(), 6.37, 2.39)
			assert.NoError(t, err)
		}()
	}

	<-provider.started
	close(provider.release)
	wg.Wait()

	assert.Equal(t, 1, provider.calls())
	stats := svc.CacheStats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}
