package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/volna/booking-api/internal/domain/order"
)

var _ order.Store = (*Store)(nil)

// Store opens checkout units of work as database transactions.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store that uses the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ExecTx runs fn inside a database transaction. The transaction commits only
// when fn returns nil; any error rolls back every write fn made through the
// Tx, including reservations and coupon usage counters.
func (s *Store) ExecTx(ctx context.Context, fn func(tx order.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

var _ order.Tx = (*Tx)(nil)

// Tx implements order.Tx on top of a single pgx transaction. All reads and
// writes of one checkout go through the same instance.
type Tx struct {
	tx pgx.Tx
}
