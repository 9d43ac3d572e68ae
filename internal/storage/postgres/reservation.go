package postgres

import (
	"context"
	"fmt"

	"github.com/volna/booking-api/internal/domain/booking"
)

const (
	countActiveReservationsSQL = `SELECT count(*) FROM reservations
		WHERE product_id = $1 AND is_active`

	hasActiveReservationSQL = `SELECT EXISTS (SELECT 1 FROM reservations
		WHERE product_id = $1 AND user_id = $2 AND is_active)`

	createReservationSQL = `INSERT INTO reservations (id, user_id, product_id, order_line_id, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	decrementReservedSeatsSQL = `UPDATE products
		SET reserved_seats = reserved_seats - 1
		WHERE id = $1 AND reserved_seats > 0`

	hasWaitNotificationSQL = `SELECT EXISTS (SELECT 1 FROM wait_queue_notifications
		WHERE product_id = $1 AND user_id = $2)`

	removeFromWaitQueueSQL = `DELETE FROM wait_queue
		WHERE product_id = $1 AND user_id = $2`
)

// CountActiveReservations returns the number of active reservations held on
// the resource. Valid only after LockResource in the same transaction.
func (t *Tx) CountActiveReservations(ctx context.Context, productID string) (int, error) {
	var n int
	if err := t.tx.QueryRow(ctx, countActiveReservationsSQL, productID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting reservations for %q: %w", productID, err)
	}
	return n, nil
}

// HasActiveReservation reports whether the user already holds an active
// reservation on the resource.
func (t *Tx) HasActiveReservation(ctx context.Context, productID, userID string) (bool, error) {
	var exists bool
	if err := t.tx.QueryRow(ctx, hasActiveReservationSQL, productID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking reservation on %q: %w", productID, err)
	}
	return exists, nil
}

// CreateReservation inserts a new reservation row. The partial unique index
// on (user_id, product_id) WHERE is_active backs up the duplicate check.
func (t *Tx) CreateReservation(ctx context.Context, r *booking.Reservation) error {
	_, err := t.tx.Exec(ctx, createReservationSQL,
		r.ID, r.UserID, r.ProductID, r.OrderLineID, r.IsActive, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating reservation %q: %w", r.ID, err)
	}
	return nil
}

// DecrementReservedSeats releases one held-back seat on the resource. A
// no-op when no seats are held.
func (t *Tx) DecrementReservedSeats(ctx context.Context, productID string) error {
	_, err := t.tx.Exec(ctx, decrementReservedSeatsSQL, productID)
	if err != nil {
		return fmt.Errorf("decrementing reserved seats on %q: %w", productID, err)
	}
	return nil
}

// HasWaitNotification reports whether the user was notified of a freed seat
// on the resource.
func (t *Tx) HasWaitNotification(ctx context.Context, productID, userID string) (bool, error) {
	var exists bool
	if err := t.tx.QueryRow(ctx, hasWaitNotificationSQL, productID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking wait notification on %q: %w", productID, err)
	}
	return exists, nil
}

// RemoveFromWaitQueue drops the user's wait-queue entry on the resource, if
// any.
func (t *Tx) RemoveFromWaitQueue(ctx context.Context, productID, userID string) error {
	_, err := t.tx.Exec(ctx, removeFromWaitQueueSQL, productID, userID)
	if err != nil {
		return fmt.Errorf("removing wait queue entry on %q: %w", productID, err)
	}
	return nil
}
