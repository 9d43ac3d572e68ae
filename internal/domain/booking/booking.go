// Package booking is the capacity ledger: per-resource seat accounting with
// overbooking prevention for timeslots and retirement events.
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/volna/booking-api/internal/domain/catalog"
)

// Reservation is one user's claim on one unit of a capacity resource.
// Cancellation fields are populated only on cancellation, never on creation.
type Reservation struct {
	ID                 string
	UserID             string
	ProductID          string
	OrderLineID        string
	IsActive           bool
	CancellationReason string
	CancelledAt        *time.Time
	CreatedAt          time.Time
}

// CapacityExceededError is returned when a resource has no seats left for
// the requesting user.
type CapacityExceededError struct {
	Ref catalog.Ref
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("no places left in %s %s", e.Ref.Kind, e.Ref.ID)
}

// DuplicateReservationError is returned when the user already holds an
// active reservation on the resource.
type DuplicateReservationError struct {
	Ref catalog.Ref
}

func (e *DuplicateReservationError) Error() string {
	return fmt.Sprintf("already registered to %s %s", e.Ref.Kind, e.Ref.ID)
}

// Tx is the transactional surface the ledger operates on. LockResource must
// take a row-level write lock on the resource so that counting active
// reservations and inserting a new one form one serializable unit; every
// other method runs under that lock within the same transaction.
type Tx interface {
	// LockResource re-reads the resource row FOR UPDATE, returning current
	// seat counts.
	LockResource(ctx context.Context, productID string) (*catalog.Product, error)
	CountActiveReservations(ctx context.Context, productID string) (int, error)
	HasActiveReservation(ctx context.Context, productID, userID string) (bool, error)
	CreateReservation(ctx context.Context, r *Reservation) error
	DecrementReservedSeats(ctx context.Context, productID string) error
	HasWaitNotification(ctx context.Context, productID, userID string) (bool, error)
	RemoveFromWaitQueue(ctx context.Context, productID, userID string) error
}
