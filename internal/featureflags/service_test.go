package featureflags_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartirrigation/smartirrigation/internal/featureflags"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newService(repo featureflags.Repository, c *clock) *featureflags.Service {
	return featureflags.NewService(featureflags.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   time.Minute,
		Now:        c.Now,
	})
}

// failingRepository fails reads while fail is set.
type failingRepository struct {
	*featureflags.InMemoryRepository
	fail bool
}

func (r *failingRepository) Get(ctx context.Context, key string) (*featureflags.Flag, error) {
	if r.fail {
		return nil, errors.New("connection refused")
	}
	return r.InMemoryRepository.Get(ctx, key)
}

func (r *failingRepository) All(ctx context.Context) (map[string]*featureflags.Flag, error) {
	if r.fail {
		return nil, errors.New("connection refused")
	}
	return r.InMemoryRepository.All(ctx)
}

func TestService_Defaults(t *testing.T) {
	svc := newService(featureflags.NewInMemoryRepository(), &clock{now: time.Now()})
	ctx := t.Context()

	assert.False(t, svc.RequireMeasuredRadiation(ctx))
	assert.False(t, svc.AdvisoryPaused(ctx))
	assert.Equal(t, 4, svc.AdvisoryConcurrency(ctx))
	assert.Nil(t, svc.GetFlag(ctx, "no_such_flag"))
	assert.False(t, svc.IsEnabled(ctx, "no_such_flag"))
}

func TestService_SetFlags(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	svc := newService(repo, &clock{now: time.Now()})
	ctx := t.Context()

	err := svc.SetFlags(ctx, []featureflags.FlagUpdate{
		{Key: featureflags.FlagRequireMeasuredRadiation, Value: true},
		{Key: featureflags.FlagAdvisoryConcurrency, Value: float64(8)},
	})
	require.NoError(t, err)

	assert.True(t, svc.RequireMeasuredRadiation(ctx))
	assert.Equal(t, 8, svc.AdvisoryConcurrency(ctx))

	stored, err := repo.Get(ctx, featureflags.FlagAdvisoryConcurrency)
	require.NoError(t, err)
	assert.Equal(t, 8, stored.Value)
	assert.False(t, stored.UpdatedAt.IsZero())
}

func TestService_SetFlags_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		update featureflags.FlagUpdate
	}{
		{"unknown key", featureflags.FlagUpdate{Key: "disable_everything", Value: true}},
		{"bool flag given string", featureflags.FlagUpdate{Key: featureflags.FlagPauseAdvisoryJob, Value: "yes"}},
		{"concurrency zero", featureflags.FlagUpdate{Key: featureflags.FlagAdvisoryConcurrency, Value: float64(0)}},
		{"concurrency fractional", featureflags.FlagUpdate{Key: featureflags.FlagAdvisoryConcurrency, Value: 2.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := featureflags.NewInMemoryRepository()
			svc := newService(repo, &clock{now: time.Now()})

			err := svc.SetFlags(t.Context(), []featureflags.FlagUpdate{
				{Key: featureflags.FlagRequireMeasuredRadiation, Value: true},
				tt.update,
			})
			require.ErrorIs(t, err, featureflags.ErrInvalidFlag)

			all, err := repo.All(t.Context())
			require.NoError(t, err)
			assert.Empty(t, all, "no update is applied when one is invalid")
		})
	}
}

func TestService_CacheExpiry(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	c := &clock{now: time.Date(2026, 6, 30, 9, 0, 0, 0, time.UTC)}
	svc := newService(repo, c)
	ctx := t.Context()

	require.NoError(t, repo.Save(ctx, &featureflags.Flag{Key: featureflags.FlagPauseAdvisoryJob, Value: true}))
	assert.True(t, svc.AdvisoryPaused(ctx))

	// Changed behind the service's back; the cached value is served until it expires.
	require.NoError(t, repo.Save(ctx, &featureflags.Flag{Key: featureflags.FlagPauseAdvisoryJob, Value: false}))
	assert.True(t, svc.AdvisoryPaused(ctx))

	c.now = c.now.Add(2 * time.Minute)
	assert.False(t, svc.AdvisoryPaused(ctx))
}

func TestService_InvalidateCache(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	svc := newService(repo, &clock{now: time.Now()})
	ctx := t.Context()

	require.NoError(t, repo.Save(ctx, &featureflags.Flag{Key: featureflags.FlagPauseAdvisoryJob, Value: true}))
	assert.True(t, svc.AdvisoryPaused(ctx))

	require.NoError(t, repo.Reset(ctx, featureflags.FlagPauseAdvisoryJob))
	assert.True(t, svc.AdvisoryPaused(ctx), "cached until invalidated")

	svc.InvalidateCache()
	assert.False(t, svc.AdvisoryPaused(ctx))
}

func TestService_ResetFlag(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	svc := newService(repo, &clock{now: time.Now()})
	ctx := t.Context()

	require.NoError(t, svc.SetFlags(ctx, []featureflags.FlagUpdate{
		{Key: featureflags.FlagAdvisoryConcurrency, Value: float64(16)},
	}))
	assert.Equal(t, 16, svc.AdvisoryConcurrency(ctx))

	require.NoError(t, svc.ResetFlag(ctx, featureflags.FlagAdvisoryConcurrency))
	assert.Equal(t, 4, svc.AdvisoryConcurrency(ctx))

	_, err := repo.Get(ctx, featureflags.FlagAdvisoryConcurrency)
	assert.ErrorIs(t, err, featureflags.ErrFlagNotFound)

	assert.ErrorIs(t, svc.ResetFlag(ctx, "no_such_flag"), featureflags.ErrInvalidFlag)
}

func TestService_RepositoryFailure(t *testing.T) {
	repo := &failingRepository{InMemoryRepository: featureflags.NewInMemoryRepository()}
	c := &clock{now: time.Date(2026, 6, 30, 9, 0, 0, 0, time.UTC)}
	svc := newService(repo, c)
	ctx := t.Context()

	require.NoError(t, repo.Save(ctx, &featureflags.Flag{Key: featureflags.FlagRequireMeasuredRadiation, Value: true}))
	assert.True(t, svc.RequireMeasuredRadiation(ctx))

	repo.fail = true
	c.now = c.now.Add(2 * time.Minute)
	assert.True(t, svc.RequireMeasuredRadiation(ctx), "expired cache entry is served when the repository fails")
	assert.False(t, svc.AdvisoryPaused(ctx), "default is served when nothing was cached")

	all := svc.GetAllFlags(ctx)
	assert.Len(t, all, len(featureflags.DefaultFlags()))
}

func TestService_GetAllFlags(t *testing.T) {
	repo := featureflags.NewInMemoryRepository(
		&featureflags.Flag{Key: featureflags.FlagPauseAdvisoryJob, Value: true},
	)
	svc := newService(repo, &clock{now: time.Now()})

	all := svc.GetAllFlags(t.Context())
	require.Len(t, all, 3)
	assert.True(t, all[featureflags.FlagPauseAdvisoryJob].BoolValue(false))
	assert.False(t, all[featureflags.FlagRequireMeasuredRadiation].BoolValue(true))

	list := featureflags.List(all)
	require.Len(t, list.Items, 3)
	assert.Equal(t, featureflags.FlagAdvisoryConcurrency, list.Items[0].Key)
	assert.Equal(t, featureflags.FlagRequireMeasuredRadiation, list.Items[2].Key)
}

func TestFlag_Values(t *testing.T) {
	var nilFlag *featureflags.Flag
	assert.True(t, nilFlag.BoolValue(true))
	assert.Equal(t, 7, nilFlag.IntValue(7))

	assert.True(t, (&featureflags.Flag{Value: float64(1)}).BoolValue(false))
	assert.False(t, (&featureflags.Flag{Value: "true"}).BoolValue(false))
	assert.Equal(t, 3, (&featureflags.Flag{Value: float64(3)}).IntValue(0))
	assert.Equal(t, 3, (&featureflags.Flag{Value: 3}).IntValue(0))
	assert.Equal(t, 9, (&featureflags.Flag{Value: "x"}).IntValue(9))
}
