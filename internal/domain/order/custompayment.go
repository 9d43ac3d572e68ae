package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/volna/booking-api/internal/domain/identity"
	"github.com/volna/booking-api/internal/domain/payment"
	"github.com/volna/booking-api/internal/domain/pricing"
)

// CustomPayments charges arbitrary named amounts outside the catalog.
// Custom payments are tax-exempt; everything else the checkout pipeline
// sells is taxed uniformly.
type CustomPayments struct {
	store   Store
	users   identity.Repository
	gateway payment.Gateway
	events  Events
	now     func() time.Time
}

// NewCustomPayments creates the custom payment service.
func NewCustomPayments(store Store, users identity.Repository, gateway payment.Gateway, events Events) *CustomPayments {
	return &CustomPayments{
		store:   store,
		users:   users,
		gateway: gateway,
		events:  events,
		now:     time.Now,
	}
}

// Create charges the user's single-use token for the given amount and
// persists the payment. The charge runs inside the same transaction as the
// row insert: a gateway failure leaves no trace.
func (s *CustomPayments) Create(ctx context.Context, userID, name string, price decimal.Decimal, singleUseToken string) (*CustomPayment, error) {
	if singleUseToken == "" {
		return nil, ErrPaymentRequired
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	cp := &CustomPayment{
		ID:              uuid.New().String(),
		UserID:          userID,
		Name:            name,
		Price:           price,
		TransactionAt:   s.now(),
		AuthorizationID: PendingSentinel,
		SettlementID:    PendingSentinel,
		ReferenceNumber: PendingSentinel,
	}

	var charge *payment.ChargeResult
	err = s.store.ExecTx(ctx, func(tx Tx) error {
		if err := tx.CreateCustomPayment(ctx, cp); err != nil {
			return errors.Wrap(err, "create custom payment")
		}

		amount := pricing.MinorUnits(price)
		charge, err = s.gateway.Charge(ctx, amount, singleUseToken, cp.ID)
		if err != nil {
			return err
		}
		cp.AuthorizationID = charge.AuthorizationID
		cp.SettlementID = charge.SettlementID
		cp.ReferenceNumber = charge.MerchantReference

		return tx.SetCustomPaymentSettlement(ctx, cp.ID, cp.AuthorizationID, cp.SettlementID, cp.ReferenceNumber)
	})
	if err != nil {
		return nil, err
	}

	ev := SettledEvent{
		OrderID:         cp.ID,
		UserID:          user.ID,
		CustomerName:    user.FullName(),
		CustomerEmail:   user.Email,
		AuthorizationID: cp.AuthorizationID,
		CardLastDigits:  charge.CardLastDigits,
		CardType:        payment.CardTypeName(charge.CardType),
		Items:           []EventItem{{Name: cp.Name, Price: cp.Price}},
		Subtotal:        cp.Price,
		Tax:             decimal.Zero,
		Total:           cp.Price,
		SettledAt:       s.now(),
	}
	if err := s.events.OrderSettled(ctx, ev); err != nil {
		zctx.From(ctx).Error("custom payment notification failed",
			zap.String("payment_id", cp.ID), zap.Error(err))
	}

	return cp, nil
}
