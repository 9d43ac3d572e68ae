package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/volna/booking-api/internal/domain/booking"
	"github.com/volna/booking-api/internal/domain/catalog"
	"github.com/volna/booking-api/internal/domain/coupon"
	"github.com/volna/booking-api/internal/domain/identity"
)

// Order is a user's purchase. The gateway correlation fields hold the "0"
// sentinel until a charge settles; an order only ever becomes visible in a
// settled or reservation-only state because the whole pipeline runs in one
// transaction.
type Order struct {
	ID              string
	UserID          string
	TransactionAt   time.Time
	AuthorizationID string
	SettlementID    string
	ReferenceNumber string
	Lines           []Line
}

// PendingSentinel is the placeholder stored in the correlation fields before
// settlement.
const PendingSentinel = "0"

// Line is one purchased unit referencing a catalog product by weak
// reference. Cost is unit price times quantity minus at most one coupon's
// discount; the discount value is frozen at redemption time and never
// recomputed.
type Line struct {
	ID             string
	OrderID        string
	Ref            catalog.Ref
	Quantity       int
	Cost           decimal.Decimal
	CouponCode     string
	CouponDiscount decimal.Decimal
}

// Tx is the unit-of-work surface the checkout pipeline runs against. It
// extends the ledger and coupon transactional surfaces with order, user and
// product access so the entire pipeline shares one database transaction.
type Tx interface {
	booking.Tx
	coupon.Tx

	ProductByRef(ctx context.Context, ref catalog.Ref) (*catalog.Product, error)
	// UserForUpdate locks the user's row so ticket/membership mutations
	// serialize with concurrent orders by the same user.
	UserForUpdate(ctx context.Context, id string) (*identity.User, error)
	UpdateUserPurchase(ctx context.Context, u *identity.User) error

	CreateOrder(ctx context.Context, o *Order) error
	UpdateOrderLine(ctx context.Context, l *Line) error
	SetOrderSettlement(ctx context.Context, orderID, authorizationID, settlementID, referenceNumber string) error

	CreateCustomPayment(ctx context.Context, p *CustomPayment) error
	SetCustomPaymentSettlement(ctx context.Context, id, authorizationID, settlementID, referenceNumber string) error
}

// Store opens the transactional unit of work. ExecTx begins a database
// transaction, runs fn, and commits only when fn returns nil; any error
// rolls back every write made through the Tx.
type Store interface {
	ExecTx(ctx context.Context, fn func(tx Tx) error) error
}

// CustomPayment is an arbitrary named amount charged outside the catalog,
// always tax-exempt.
type CustomPayment struct {
	ID              string
	UserID          string
	Name            string
	Price           decimal.Decimal
	TransactionAt   time.Time
	AuthorizationID string
	SettlementID    string
	ReferenceNumber string
}
