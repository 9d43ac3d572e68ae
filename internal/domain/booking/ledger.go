package booking

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/volna/booking-api/internal/domain/catalog"
)

// Ledger reserves seats on capacity-limited resources. All methods must be
// called inside the caller's enclosing transaction; the ledger never commits
// anything itself.
type Ledger struct {
	now func() time.Time
}

// NewLedger creates a capacity Ledger.
func NewLedger() *Ledger {
	return &Ledger{now: time.Now}
}

// Reserve claims one seat on the given resource for the user. The resource
// row is locked for update before any count is read, so two concurrent
// reservations can never both observe the last free seat.
//
// For timeslots, capacity is the owning workplace's seat count; a timeslot
// with no workplace has capacity zero. For retirement events, a user holding
// a wait-queue notification may be admitted from the held-back reserved
// seats even when normal capacity is exhausted; the held seat is consumed
// and the user's wait-queue entry cleared.
//
// Re-invoking for the same (resource, user) pair after a success always
// fails with DuplicateReservationError and never creates a second row.
func (l *Ledger) Reserve(ctx context.Context, tx Tx, ref catalog.Ref, userID, orderLineID string) (*Reservation, error) {
	res, err := tx.LockResource(ctx, ref.ID)
	if err != nil {
		return nil, err
	}

	dup, err := tx.HasActiveReservation(ctx, ref.ID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "check existing reservation")
	}
	if dup {
		return nil, &DuplicateReservationError{Ref: ref}
	}

	active, err := tx.CountActiveReservations(ctx, ref.ID)
	if err != nil {
		return nil, errors.Wrap(err, "count active reservations")
	}

	fromHeldSeat := false
	switch ref.Kind {
	case catalog.KindTimeslot:
		if res.Capacity()-active <= 0 {
			return nil, &CapacityExceededError{Ref: ref}
		}
	case catalog.KindRetirement:
		remaining := res.Seats - active - res.ReservedSeats
		if remaining <= 0 {
			notified := false
			if res.ReservedSeats > 0 {
				notified, err = tx.HasWaitNotification(ctx, ref.ID, userID)
				if err != nil {
					return nil, errors.Wrap(err, "check wait-queue notification")
				}
			}
			if !notified {
				return nil, &CapacityExceededError{Ref: ref}
			}
			fromHeldSeat = true
		}
	default:
		return nil, errors.Errorf("resource kind %q has no capacity", ref.Kind)
	}

	r := &Reservation{
		ID:          uuid.New().String(),
		UserID:      userID,
		ProductID:   ref.ID,
		OrderLineID: orderLineID,
		IsActive:    true,
		CreatedAt:   l.now(),
	}
	if err := tx.CreateReservation(ctx, r); err != nil {
		return nil, errors.Wrap(err, "create reservation")
	}

	if fromHeldSeat {
		if err := tx.DecrementReservedSeats(ctx, ref.ID); err != nil {
			return nil, errors.Wrap(err, "consume held seat")
		}
	}
	if ref.Kind == catalog.KindRetirement {
		if err := tx.RemoveFromWaitQueue(ctx, ref.ID, userID); err != nil {
			return nil, errors.Wrap(err, "clear wait queue")
		}
	}

	return r, nil
}
