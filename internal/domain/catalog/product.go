package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a referenced product does not exist.
var ErrNotFound = errors.New("product not found")

// Kind discriminates the catalog product variants.
type Kind string

const (
	KindMembership Kind = "membership"
	KindPackage    Kind = "package"
	KindTimeslot   Kind = "timeslot"
	KindRetirement Kind = "retirement"
)

// Valid reports whether k is a known product kind.
func (k Kind) Valid() bool {
	switch k {
	case KindMembership, KindPackage, KindTimeslot, KindRetirement:
		return true
	}
	return false
}

// CapacityBound reports whether products of this kind hold seat-limited
// resources that require a reservation.
func (k Kind) CapacityBound() bool {
	return k == KindTimeslot || k == KindRetirement
}

// Chargeable reports whether lines of this kind move money through the
// payment gateway. Timeslots are paid in tickets, not money.
func (k Kind) Chargeable() bool {
	return k == KindMembership || k == KindPackage || k == KindRetirement
}

// Ref is a weak reference to a catalog product: the product's lifecycle is
// independent of any order line pointing at it.
type Ref struct {
	Kind Kind
	ID   string
}

// Product is the tagged union of all purchasable catalog entries. Kind
// selects which variant fields are meaningful; the shared fields are always
// populated.
type Product struct {
	ID        string
	Kind      Kind
	Name      string
	Price     decimal.Decimal
	Available bool

	// Membership: length of the granted membership and the academic levels
	// allowed to buy it (empty means unrestricted).
	DurationDays   int
	AcademicLevels []string

	// Package: number of reservation tickets credited per unit.
	TicketCount int

	// Timeslot: capacity comes from the owning workplace. WorkplaceSeats is
	// zero when no workplace is attached, which makes the slot unbookable.
	WorkplaceID    string
	WorkplaceSeats int
	StartAt        time.Time
	EndAt          time.Time

	// Retirement: fixed capacity plus seats held back for wait-queue
	// promotion.
	Seats         int
	ReservedSeats int

	// Package/retirement: memberships allowed to purchase (empty means
	// unrestricted).
	ExclusiveMembershipIDs []string
}

// Ref returns the weak reference identifying this product.
func (p *Product) Ref() Ref {
	return Ref{Kind: p.Kind, ID: p.ID}
}

// Capacity returns the product's total seat capacity. Timeslots inherit the
// workplace seat count; a timeslot with no workplace has capacity zero.
func (p *Product) Capacity() int {
	switch p.Kind {
	case KindTimeslot:
		return p.WorkplaceSeats
	case KindRetirement:
		return p.Seats
	default:
		return 0
	}
}

// RequiresMembership reports whether purchasing this product is restricted to
// an explicit set of memberships.
func (p *Product) RequiresMembership() bool {
	return (p.Kind == KindPackage || p.Kind == KindRetirement) && len(p.ExclusiveMembershipIDs) > 0
}

// Repository defines read operations for the product catalog outside a
// checkout transaction.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByRef(ctx context.Context, ref Ref) (*Product, error)
}
