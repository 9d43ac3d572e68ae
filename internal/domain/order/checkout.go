package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/volna/booking-api/internal/domain/booking"
	"github.com/volna/booking-api/internal/domain/catalog"
	"github.com/volna/booking-api/internal/domain/coupon"
	"github.com/volna/booking-api/internal/domain/identity"
	"github.com/volna/booking-api/internal/domain/payment"
	"github.com/volna/booking-api/internal/domain/pricing"
)

// CartLine is one requested purchase in a cart.
type CartLine struct {
	Ref      catalog.Ref
	Quantity int
}

// Cart is the checkout input: order lines, an optional coupon code, and at
// most one payment credential.
type Cart struct {
	UserID         string
	Lines          []CartLine
	CouponCode     string
	PaymentToken   string
	SingleUseToken string
}

// Result is a committed checkout. Charge is nil for reservation-only and
// fully discounted orders.
type Result struct {
	Order        *Order
	Totals       pricing.Totals
	Discount     decimal.Decimal
	Charge       *payment.ChargeResult
	Reservations []*booking.Reservation
}

// Checkout coordinates capacity reservation, coupon application, pricing
// and payment into one atomic business transaction. Every validation and
// write happens inside a single database transaction; the external charge is
// the last fallible step, so a gateway failure rolls everything back and a
// validation failure never reaches the gateway.
type Checkout struct {
	store    Store
	users    identity.Repository
	profiles payment.ProfileRepository
	gateway  payment.Gateway
	ledger   *booking.Ledger
	coupons  *coupon.Engine
	calc     *pricing.Calculator
	events   Events
	now      func() time.Time
}

// NewCheckout creates the order orchestrator.
func NewCheckout(
	store Store,
	users identity.Repository,
	profiles payment.ProfileRepository,
	gateway payment.Gateway,
	ledger *booking.Ledger,
	coupons *coupon.Engine,
	calc *pricing.Calculator,
	events Events,
) *Checkout {
	return &Checkout{
		store:    store,
		users:    users,
		profiles: profiles,
		gateway:  gateway,
		ledger:   ledger,
		coupons:  coupons,
		calc:     calc,
		events:   events,
		now:      time.Now,
	}
}

// PlaceOrder runs the full pipeline: validate → reserve → price → charge →
// settle. On any failure nothing is persisted: no order, no reservation, no
// ticket debit, no coupon increment. On success the post-commit
// notifications are emitted; their failure is logged and swallowed.
func (c *Checkout) PlaceOrder(ctx context.Context, cart Cart) (*Result, error) {
	if len(cart.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	for _, l := range cart.Lines {
		if l.Quantity <= 0 {
			return nil, &InvalidQuantityError{Ref: l.Ref}
		}
		if !l.Ref.Kind.Valid() {
			return nil, &InvalidReferenceError{Ref: l.Ref}
		}
	}

	// A single-use token with no stored profile means the external vault
	// profile is created first. This happens before the transaction: a
	// gateway failure here aborts the whole order with nothing persisted.
	profile, err := c.ensureProfile(ctx, cart)
	if err != nil {
		return nil, err
	}

	var (
		result       Result
		settledEv    *SettledEvent
		retirementEv []RetirementBookedEvent
	)
	err = c.store.ExecTx(ctx, func(tx Tx) error {
		res, sev, revs, err := c.placeOrderTx(ctx, tx, cart, profile)
		if err != nil {
			return err
		}
		result = *res
		settledEv = sev
		retirementEv = revs
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The order is settled from the business perspective; notification
	// failures are secondary and never retried synchronously.
	lg := zctx.From(ctx)
	if settledEv != nil {
		if err := c.events.OrderSettled(ctx, *settledEv); err != nil {
			lg.Error("order settled notification failed",
				zap.String("order_id", result.Order.ID), zap.Error(err))
		}
	}
	for _, ev := range retirementEv {
		if err := c.events.RetirementBooked(ctx, ev); err != nil {
			lg.Error("retirement booked notification failed",
				zap.String("reservation_id", ev.ReservationID), zap.Error(err))
		}
	}

	return &result, nil
}

// placeOrderTx is the transactional body of PlaceOrder.
func (c *Checkout) placeOrderTx(ctx context.Context, tx Tx, cart Cart, profile *payment.CustomerProfile) (*Result, *SettledEvent, []RetirementBookedEvent, error) {
	user, err := tx.UserForUpdate(ctx, cart.UserID)
	if err != nil {
		return nil, nil, nil, err
	}

	o := &Order{
		ID:              uuid.New().String(),
		UserID:          user.ID,
		TransactionAt:   c.now(),
		AuthorizationID: PendingSentinel,
		SettlementID:    PendingSentinel,
		ReferenceNumber: PendingSentinel,
	}

	// Validating: every referenced product must exist and the user must
	// pass its eligibility gates.
	products := make([]*catalog.Product, len(cart.Lines))
	for i, cl := range cart.Lines {
		p, err := tx.ProductByRef(ctx, cl.Ref)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, nil, nil, &InvalidReferenceError{Ref: cl.Ref}
			}
			return nil, nil, nil, err
		}
		if err := checkEligibility(user, p); err != nil {
			return nil, nil, nil, err
		}
		products[i] = p

		cost := decimal.Zero
		if cl.Ref.Kind.Chargeable() {
			cost = pricing.LineCost(p.Price, cl.Quantity)
		}
		o.Lines = append(o.Lines, Line{
			ID:       uuid.New().String(),
			OrderID:  o.ID,
			Ref:      cl.Ref,
			Quantity: cl.Quantity,
			Cost:     cost,
		})
	}

	if err := tx.CreateOrder(ctx, o); err != nil {
		return nil, nil, nil, errors.Wrap(err, "create order")
	}

	// Coupon applies to the first eligible line; the discount value is
	// frozen onto the line.
	discount := decimal.Zero
	couponCode := ""
	if cart.CouponCode != "" {
		lines := make([]coupon.Line, len(o.Lines))
		for i, l := range o.Lines {
			lines[i] = coupon.Line{Ref: l.Ref, Cost: l.Cost}
		}
		red, err := c.coupons.ValidateAndApply(ctx, tx, cart.CouponCode, user.ID, lines)
		if err != nil {
			return nil, nil, nil, err
		}
		line := &o.Lines[red.LineIndex]
		line.Cost = pricing.ApplyDiscount(line.Cost, red.Discount)
		line.CouponCode = red.Coupon.Code
		line.CouponDiscount = red.Discount
		if err := tx.UpdateOrderLine(ctx, line); err != nil {
			return nil, nil, nil, errors.Wrap(err, "apply coupon to line")
		}
		discount = red.Discount
		couponCode = red.Coupon.Code
	}

	// Reserving: memberships, ticket credits, seat reservations.
	reservations, retirementEv, err := c.fulfillLines(ctx, tx, o, user, products)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := tx.UpdateUserPurchase(ctx, user); err != nil {
		return nil, nil, nil, errors.Wrap(err, "save user purchase state")
	}

	// Pricing.
	lineCosts := make([]decimal.Decimal, len(o.Lines))
	for i, l := range o.Lines {
		lineCosts[i] = l.Cost
	}
	totals := c.calc.Totals(lineCosts)

	// Charging: only orders carrying at least one chargeable line move
	// money, and only when the amount is non-zero. The charge is the single
	// non-retractable side effect, so it runs after every other
	// precondition has been confirmed.
	needCharge := false
	for _, l := range o.Lines {
		if l.Ref.Kind.Chargeable() {
			needCharge = true
			break
		}
	}

	var charge *payment.ChargeResult
	if needCharge && totals.AmountMinorUnits > 0 {
		charge, err = c.charge(ctx, cart, profile, totals.AmountMinorUnits, o.ID)
		if err != nil {
			return nil, nil, nil, err
		}
		o.AuthorizationID = charge.AuthorizationID
		o.SettlementID = charge.SettlementID
		o.ReferenceNumber = charge.MerchantReference
	} else if needCharge {
		// Fully discounted: settled without a gateway call, with a local
		// reference for correlation.
		o.ReferenceNumber = "charge-" + uuid.New().String()
	}

	if needCharge {
		if err := tx.SetOrderSettlement(ctx, o.ID, o.AuthorizationID, o.SettlementID, o.ReferenceNumber); err != nil {
			return nil, nil, nil, errors.Wrap(err, "record settlement")
		}
	}

	var settledEv *SettledEvent
	if needCharge {
		settledEv = c.settledEvent(o, user, products, totals, discount, couponCode, charge)
	}

	return &Result{
		Order:        o,
		Totals:       totals,
		Discount:     discount,
		Charge:       charge,
		Reservations: reservations,
	}, settledEv, retirementEv, nil
}

// fulfillLines applies the per-kind reserving rules and mutates the user
// snapshot in place. The caller persists the user afterwards.
func (c *Checkout) fulfillLines(ctx context.Context, tx Tx, o *Order, user *identity.User, products []*catalog.Product) ([]*booking.Reservation, []RetirementBookedEvent, error) {
	var (
		reservations []*booking.Reservation
		retirementEv []RetirementBookedEvent
	)

	for i := range o.Lines {
		line := &o.Lines[i]
		p := products[i]

		switch line.Ref.Kind {
		case catalog.KindMembership:
			if user.HasActiveMembership(c.now()) {
				return nil, nil, ErrDuplicateMembership
			}
			user.MembershipID = p.ID
			user.MembershipEnd = c.now().AddDate(0, 0, p.DurationDays)

		case catalog.KindPackage:
			user.Tickets += p.TicketCount * line.Quantity

		case catalog.KindTimeslot:
			// Timeslot price is denominated in tickets. Quantity is kept at
			// one seat per line for now.
			price := int(p.Price.IntPart())
			if price > user.Tickets {
				return nil, nil, ErrInsufficientTickets
			}
			r, err := c.ledger.Reserve(ctx, tx, line.Ref, user.ID, line.ID)
			if err != nil {
				return nil, nil, err
			}
			user.Tickets--
			reservations = append(reservations, r)

		case catalog.KindRetirement:
			if user.Phone == "" || user.City == "" {
				return nil, nil, ErrIncompleteProfile
			}
			r, err := c.ledger.Reserve(ctx, tx, line.Ref, user.ID, line.ID)
			if err != nil {
				return nil, nil, err
			}
			reservations = append(reservations, r)
			retirementEv = append(retirementEv, RetirementBookedEvent{
				ReservationID: r.ID,
				UserID:        user.ID,
				CustomerName:  user.FullName(),
				CustomerEmail: user.Email,
				ProductID:     p.ID,
				ProductName:   p.Name,
				BookedAt:      c.now(),
			})
		}
	}

	return reservations, retirementEv, nil
}

// ensureProfile returns the user's stored payment profile, creating the
// external vault profile lazily when a single-use token is supplied and no
// profile exists yet. Gateway failures surface as-is and abort the order.
func (c *Checkout) ensureProfile(ctx context.Context, cart Cart) (*payment.CustomerProfile, error) {
	profile, err := c.profiles.GetByUser(ctx, cart.UserID)
	if err != nil && !errors.Is(err, payment.ErrNoProfile) {
		return nil, errors.Wrap(err, "load payment profile")
	}
	if profile != nil || cart.SingleUseToken == "" {
		return profile, nil
	}

	// The gateway needs the customer identity to create the vault profile.
	user, err := c.users.GetByID(ctx, cart.UserID)
	if err != nil {
		return nil, err
	}
	ext, err := c.gateway.CreateProfile(ctx, payment.Customer{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
	if err != nil {
		return nil, err
	}
	profile = &payment.CustomerProfile{
		UserID:      cart.UserID,
		ExternalID:  ext.ExternalID,
		ExternalURL: ext.URL,
		CreatedAt:   c.now(),
	}
	if err := c.profiles.Create(ctx, profile); err != nil {
		return nil, errors.Wrap(err, "store payment profile")
	}
	return profile, nil
}

// charge makes exactly one gateway charge call: against the reusable stored
// token when present, otherwise against a vault card created from the
// single-use token. With neither credential the order is rejected before
// any money moves.
func (c *Checkout) charge(ctx context.Context, cart Cart, profile *payment.CustomerProfile, amount int64, orderID string) (*payment.ChargeResult, error) {
	token := cart.PaymentToken
	if token == "" && cart.SingleUseToken != "" {
		if profile == nil {
			return nil, ErrPaymentRequired
		}
		cardToken, err := c.gateway.CreateCard(ctx, profile.ExternalID, cart.SingleUseToken)
		if err != nil {
			return nil, err
		}
		token = cardToken
	}
	if token == "" {
		return nil, ErrPaymentRequired
	}
	return c.gateway.Charge(ctx, amount, token, orderID)
}

func (c *Checkout) settledEvent(o *Order, user *identity.User, products []*catalog.Product, totals pricing.Totals, discount decimal.Decimal, couponCode string, charge *payment.ChargeResult) *SettledEvent {
	ev := &SettledEvent{
		OrderID:         o.ID,
		UserID:          user.ID,
		CustomerName:    user.FullName(),
		CustomerEmail:   user.Email,
		AuthorizationID: o.AuthorizationID,
		CardLastDigits:  "",
		CardType:        payment.CardTypeName("NONE"),
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		Total:           totals.Total.Round(2),
		Discount:        discount,
		CouponCode:      couponCode,
		SettledAt:       c.now(),
	}
	if charge != nil {
		ev.CardLastDigits = charge.CardLastDigits
		ev.CardType = payment.CardTypeName(charge.CardType)
	}
	for i, l := range o.Lines {
		if !l.Ref.Kind.Chargeable() {
			continue
		}
		ev.Items = append(ev.Items, EventItem{
			Name:  string(l.Ref.Kind) + ": " + products[i].Name,
			Price: products[i].Price,
		})
	}
	return ev
}

// checkEligibility enforces membership exclusivity and academic-level
// gating. Staff users bypass both gates.
func checkEligibility(user *identity.User, p *catalog.Product) error {
	if user.IsStaff {
		return nil
	}
	if p.RequiresMembership() && !contains(p.ExclusiveMembershipIDs, user.MembershipID) {
		return &EligibilityError{
			Ref:    p.Ref(),
			Reason: "requires a membership this user does not hold",
		}
	}
	if p.Kind == catalog.KindMembership && len(p.AcademicLevels) > 0 && !contains(p.AcademicLevels, user.AcademicLevel) {
		return &EligibilityError{
			Ref:    p.Ref(),
			Reason: "requires an academic level this user does not have",
		}
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
