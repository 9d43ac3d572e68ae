package postgres

import (
	"context"
	"fmt"

	"github.com/volna/booking-api/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, user_id, transaction_at, authorization_id, settlement_id, reference_number)
		VALUES ($1, $2, $3, $4, $5, $6)`

	createOrderLineSQL = `INSERT INTO order_lines (id, order_id, product_kind, product_id, quantity, cost)
		VALUES ($1, $2, $3, $4, $5, $6)`

	updateOrderLineSQL = `UPDATE order_lines
		SET cost = $2, coupon_code = NULLIF($3, ''), coupon_discount = $4
		WHERE id = $1`

	setOrderSettlementSQL = `UPDATE orders
		SET authorization_id = $2, settlement_id = $3, reference_number = $4
		WHERE id = $1`

	createCustomPaymentSQL = `INSERT INTO custom_payments (id, user_id, name, price, transaction_at, authorization_id, settlement_id, reference_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	setCustomPaymentSettlementSQL = `UPDATE custom_payments
		SET authorization_id = $2, settlement_id = $3, reference_number = $4
		WHERE id = $1`
)

// CreateOrder inserts the order header and its lines with their pre-discount
// costs. Discounted lines are rewritten by UpdateOrderLine before commit.
func (t *Tx) CreateOrder(ctx context.Context, o *order.Order) error {
	_, err := t.tx.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, o.TransactionAt,
		o.AuthorizationID, o.SettlementID, o.ReferenceNumber,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for i := range o.Lines {
		l := &o.Lines[i]
		_, err := t.tx.Exec(ctx, createOrderLineSQL,
			l.ID, o.ID, l.Ref.Kind, l.Ref.ID, l.Quantity, l.Cost,
		)
		if err != nil {
			return fmt.Errorf("creating order line %q: %w", l.ID, err)
		}
	}
	return nil
}

// UpdateOrderLine rewrites a line's cost and frozen coupon fields.
func (t *Tx) UpdateOrderLine(ctx context.Context, l *order.Line) error {
	_, err := t.tx.Exec(ctx, updateOrderLineSQL,
		l.ID, l.Cost, l.CouponCode, l.CouponDiscount,
	)
	if err != nil {
		return fmt.Errorf("updating order line %q: %w", l.ID, err)
	}
	return nil
}

// SetOrderSettlement replaces the pending sentinels with the gateway
// correlation identifiers.
func (t *Tx) SetOrderSettlement(ctx context.Context, orderID, authorizationID, settlementID, referenceNumber string) error {
	_, err := t.tx.Exec(ctx, setOrderSettlementSQL,
		orderID, authorizationID, settlementID, referenceNumber,
	)
	if err != nil {
		return fmt.Errorf("settling order %q: %w", orderID, err)
	}
	return nil
}

// CreateCustomPayment inserts a custom payment row in its pending state.
func (t *Tx) CreateCustomPayment(ctx context.Context, p *order.CustomPayment) error {
	_, err := t.tx.Exec(ctx, createCustomPaymentSQL,
		p.ID, p.UserID, p.Name, p.Price, p.TransactionAt,
		p.AuthorizationID, p.SettlementID, p.ReferenceNumber,
	)
	if err != nil {
		return fmt.Errorf("creating custom payment %q: %w", p.ID, err)
	}
	return nil
}

// SetCustomPaymentSettlement replaces the pending sentinels with the
// gateway correlation identifiers.
func (t *Tx) SetCustomPaymentSettlement(ctx context.Context, id, authorizationID, settlementID, referenceNumber string) error {
	_, err := t.tx.Exec(ctx, setCustomPaymentSettlementSQL,
		id, authorizationID, settlementID, referenceNumber,
	)
	if err != nil {
		return fmt.Errorf("settling custom payment %q: %w", id, err)
	}
	return nil
}
