package featureflags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	selectOverrideSQL  = `SELECT key, value, updated_at FROM feature_flags WHERE key = $1`
	selectOverridesSQL = `SELECT key, value, updated_at FROM feature_flags`
	deleteOverrideSQL  = `DELETE FROM feature_flags WHERE key = $1`
	upsertOverrideSQL  = `
		INSERT INTO feature_flags (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`
)

// PostgresRepository stores overrides in the feature_flags table, one JSONB value per key.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgresRepository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, key string) (*Flag, error) {
	f, err := scanOverride(r.pool.QueryRow(ctx, selectOverrideSQL, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFlagNotFound
	}
	return f, err
}

func (r *PostgresRepository) All(ctx context.Context) (map[string]*Flag, error) {
	rows, err := r.pool.Query(ctx, selectOverridesSQL)
	if err != nil {
		return nil, fmt.Errorf("query feature flags: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*Flag)
	for rows.Next() {
		f, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		out[f.Key] = f
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Save(ctx context.Context, flags ...*Flag) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, f := range flags {
			value, err := json.Marshal(f.Value)
			if err != nil {
				return fmt.Errorf("encode flag %s: %w", f.Key, err)
			}
			batch.Queue(upsertOverrideSQL, f.Key, value, f.UpdatedAt)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (r *PostgresRepository) Reset(ctx context.Context, key string) error {
	if _, err := r.pool.Exec(ctx, deleteOverrideSQL, key); err != nil {
		return fmt.Errorf("reset flag %s: %w", key, err)
	}
	return nil
}

func scanOverride(row pgx.Row) (*Flag, error) {
	var (
		f   Flag
		raw []byte
	)
	if err := row.Scan(&f.Key, &raw, &f.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &f.Value); err != nil {
		return nil, fmt.Errorf("decode flag %s: %w", f.Key, err)
	}
	return &f, nil
}

var _ Repository = (*PostgresRepository)(nil)
