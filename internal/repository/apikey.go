package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurelia-shop/pricing-engine/internal/domain/auth"
)

const (
	getAPIKeyByHashSQL = `SELECT id, key_hash, name, scopes
		FROM api_keys WHERE key_hash = $1 AND active = TRUE`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			key_hash = EXCLUDED.key_hash,
			name = EXCLUDED.name,
			scopes = EXCLUDED.scopes,
			active = EXCLUDED.active`
)

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository provides API key lookups backed by PostgreSQL.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository returns an APIKeyRepository that uses the given pool.
func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByHash looks up an active API key by its HMAC-SHA256 hash.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error) {
	rows, err := r.pool.Query(ctx, getAPIKeyByHashSQL, hash)
	if err != nil {
		return nil, fmt.Errorf("finding api key by hash: %w", err)
	}

	info, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (auth.APIKeyInfo, error) {
		var k auth.APIKeyInfo
		err := row.Scan(&k.ID, &k.KeyHash, &k.Name, &k.Scopes)
		return k, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("api key not found: %w", err)
		}
		return nil, fmt.Errorf("finding api key by hash: %w", err)
	}

	return &info, nil
}

// Upsert stores an API key record. Used by the seeder.
func (r *APIKeyRepository) Upsert(ctx context.Context, k auth.APIKeyInfo, active bool) error {
	if _, err := r.pool.Exec(ctx, upsertAPIKeySQL, k.ID, k.KeyHash, k.Name, k.Scopes, active); err != nil {
		return fmt.Errorf("upserting api key %q: %w", k.ID, err)
	}
	return nil
}
