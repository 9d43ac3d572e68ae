package order

import (
	"fmt"

	"github.com/go-faster/errors"

	"github.com/volna/booking-api/internal/domain/catalog"
)

// Sentinel errors for cart validation and charging preconditions.
var (
	// ErrEmptyCart is returned when an order has no lines.
	ErrEmptyCart = errors.New("order lines required")
	// ErrDuplicateMembership is returned when the user already holds a
	// non-expired membership.
	ErrDuplicateMembership = errors.New("user already has an active membership")
	// ErrInsufficientTickets is returned when the user's ticket balance
	// cannot cover a timeslot reservation.
	ErrInsufficientTickets = errors.New("not enough tickets for this reservation")
	// ErrPaymentRequired is returned when a chargeable order carries no
	// usable payment token or stored profile.
	ErrPaymentRequired = errors.New("a payment token or single-use token is required")
	// ErrIncompleteProfile is returned when retirement booking requirements
	// (phone and city on the user profile) are not met.
	ErrIncompleteProfile = errors.New("phone and city must be filled in the user profile to book a retirement")
)

// InvalidQuantityError indicates a line with a non-positive quantity.
type InvalidQuantityError struct {
	Ref catalog.Ref
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for %s %s", e.Ref.Kind, e.Ref.ID)
}

// InvalidReferenceError indicates an order line pointing at a product that
// does not exist.
type InvalidReferenceError struct {
	Ref catalog.Ref
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("referenced %s %s does not exist", e.Ref.Kind, e.Ref.ID)
}

// EligibilityError indicates the requesting user fails a product's
// membership or academic-level gate.
type EligibilityError struct {
	Ref    catalog.Ref
	Reason string
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("not eligible for %s %s: %s", e.Ref.Kind, e.Ref.ID, e.Reason)
}
