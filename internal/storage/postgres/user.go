package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/volna/booking-api/internal/domain/identity"
)

const (
	userColumns = `id, email, first_name, last_name, is_staff, academic_level,
		COALESCE(membership_id, ''), membership_end, tickets, phone, city`

	getUserByIDSQL = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	getUserForUpdateSQL = getUserByIDSQL + ` FOR UPDATE`

	updateUserPurchaseSQL = `UPDATE users
		SET tickets = $2, membership_id = NULLIF($3, ''), membership_end = $4
		WHERE id = $1`
)

var _ identity.Repository = (*UserRepository)(nil)

// UserRepository implements identity.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID returns the user identified by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*identity.User, error) {
	rows, err := r.pool.Query(ctx, getUserByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting user %q: %w", id, err)
	}
	return collectUser(rows, id)
}

// UserForUpdate locks the user's row for the rest of the transaction so
// ticket and membership mutations by concurrent orders serialize.
func (t *Tx) UserForUpdate(ctx context.Context, id string) (*identity.User, error) {
	rows, err := t.tx.Query(ctx, getUserForUpdateSQL, id)
	if err != nil {
		return nil, fmt.Errorf("locking user %q: %w", id, err)
	}
	return collectUser(rows, id)
}

// UpdateUserPurchase writes back the purchase-mutable fields: the ticket
// balance and the granted membership.
func (t *Tx) UpdateUserPurchase(ctx context.Context, u *identity.User) error {
	var end *time.Time
	if !u.MembershipEnd.IsZero() {
		end = &u.MembershipEnd
	}

	_, err := t.tx.Exec(ctx, updateUserPurchaseSQL, u.ID, u.Tickets, u.MembershipID, end)
	if err != nil {
		return fmt.Errorf("updating user %q: %w", u.ID, err)
	}
	return nil
}

func collectUser(rows pgx.Rows, id string) (*identity.User, error) {
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %q: %w", id, err)
	}
	return &u, nil
}

func scanUser(row pgx.CollectableRow) (identity.User, error) {
	var (
		u   identity.User
		end *time.Time
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.IsStaff, &u.AcademicLevel,
		&u.MembershipID, &end, &u.Tickets, &u.Phone, &u.City,
	)
	if end != nil {
		u.MembershipEnd = *end
	}
	return u, err
}
