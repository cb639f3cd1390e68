package featureflags

import (
	"context"
	"errors"
)

// ErrFlagNotFound is returned when a key has no stored override.
var ErrFlagNotFound = errors.New("feature flag not found")

// Repository stores flag overrides. A key without an override takes its
// value from the service defaults.
type Repository interface {
	Get(ctx context.Context, key string) (*Flag, error)
	All(ctx context.Context) (map[string]*Flag, error)

	// Save upserts overrides. Either all of them are stored or none is.
	Save(ctx context.Context, flags ...*Flag) error

	// Reset drops the override for key. Resetting a key with no override is a no-op.
	Reset(ctx context.Context, key string) error
}
