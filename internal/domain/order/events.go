package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EventItem is one purchased item in a notification payload.
type EventItem struct {
	Name  string
	Price decimal.Decimal
}

// SettledEvent is the merge-data payload emitted after a chargeable order
// commits. Consumers render confirmation messages from it without touching
// the database.
type SettledEvent struct {
	OrderID         string
	UserID          string
	CustomerName    string
	CustomerEmail   string
	AuthorizationID string
	CardLastDigits  string
	CardType        string
	Items           []EventItem
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	Discount        decimal.Decimal
	CouponCode      string
	SettledAt       time.Time
}

// RetirementBookedEvent is emitted once per retirement reservation on a
// committed order.
type RetirementBookedEvent struct {
	ReservationID string
	UserID        string
	CustomerName  string
	CustomerEmail string
	ProductID     string
	ProductName   string
	BookedAt      time.Time
}

// Events receives post-commit notifications. Implementations are
// fire-and-forget from the pipeline's perspective: a returned error is
// logged and swallowed, and never unwinds the settled order.
type Events interface {
	OrderSettled(ctx context.Context, ev SettledEvent) error
	RetirementBooked(ctx context.Context, ev RetirementBookedEvent) error
}

// NopEvents discards all events. Used when no broker is configured.
type NopEvents struct{}

func (NopEvents) OrderSettled(context.Context, SettledEvent) error { return nil }

func (NopEvents) RetirementBooked(context.Context, RetirementBookedEvent) error { return nil }
