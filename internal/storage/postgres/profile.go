package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/volna/booking-api/internal/domain/payment"
)

const (
	getProfileByUserSQL = `SELECT user_id, external_id, external_url, created_at
		FROM payment_profiles WHERE user_id = $1`

	createProfileSQL = `INSERT INTO payment_profiles (user_id, external_id, external_url, created_at)
		VALUES ($1, $2, $3, $4)`
)

var _ payment.ProfileRepository = (*ProfileRepository)(nil)

// ProfileRepository implements payment.ProfileRepository backed by
// PostgreSQL. Only external vault identifiers are stored, never card data.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository returns a ProfileRepository that uses the given pool.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// GetByUser returns the user's vault profile mapping, or payment.ErrNoProfile
// when none exists yet.
func (r *ProfileRepository) GetByUser(ctx context.Context, userID string) (*payment.CustomerProfile, error) {
	rows, err := r.pool.Query(ctx, getProfileByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("getting payment profile for %q: %w", userID, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[payment.CustomerProfile])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrNoProfile
		}
		return nil, fmt.Errorf("getting payment profile for %q: %w", userID, err)
	}
	return &p, nil
}

// Create persists a new vault profile mapping.
func (r *ProfileRepository) Create(ctx context.Context, p *payment.CustomerProfile) error {
	_, err := r.pool.Exec(ctx, createProfileSQL,
		p.UserID, p.ExternalID, p.ExternalURL, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating payment profile for %q: %w", p.UserID, err)
	}
	return nil
}
