package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/volna/booking-api/internal/domain/auth"
)

const getTokenByHashSQL = `SELECT token_hash, user_id, name
	FROM api_tokens WHERE token_hash = $1`

var _ auth.Repository = (*TokenRepository)(nil)

// TokenRepository provides API token lookups backed by PostgreSQL.
type TokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository returns a TokenRepository that uses the given pool.
func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// FindByHash looks up an API token by its HMAC-SHA256 hash. Returns
// auth.ErrInvalidToken when no matching token exists.
func (r *TokenRepository) FindByHash(ctx context.Context, hash string) (*auth.TokenInfo, error) {
	rows, err := r.pool.Query(ctx, getTokenByHashSQL, hash)
	if err != nil {
		return nil, fmt.Errorf("finding token by hash: %w", err)
	}

	info, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[auth.TokenInfo])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrInvalidToken
		}
		return nil, fmt.Errorf("finding token by hash: %w", err)
	}
	return &info, nil
}
