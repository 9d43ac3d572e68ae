// Package payment defines the external payment gateway contract. The
// gateway is a black box that charges money: every call is side-effecting
// and must be invoked at most once per logical order.
package payment

import (
	"context"
	"fmt"
)

// APIError is a failure reported by the external gateway. The message is
// passed through to the caller as the rejection reason.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payment gateway: %s", e.Message)
}

// ChargeResult carries the gateway correlation identifiers recorded on a
// settled order, plus card details used in confirmation payloads.
type ChargeResult struct {
	AuthorizationID   string
	SettlementID      string
	MerchantReference string
	CardLastDigits    string
	CardType          string
}

// Profile is an external customer vault profile.
type Profile struct {
	ExternalID string
	URL        string
}

// CardSummary describes one stored card on an external profile.
type CardSummary struct {
	PaymentToken string
	LastDigits   string
	CardType     string
	ExpiryMonth  int
	ExpiryYear   int
}

// Customer is the subset of user identity the gateway needs to create a
// vault profile.
type Customer struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
}

// Gateway is the external charge/vault service. Implementations block until
// the gateway responds; no retry is ever performed here because a repeated
// call can charge twice.
type Gateway interface {
	// Charge settles the given minor-unit amount against a payment token
	// (stored or vault-issued), tagged with the order reference.
	Charge(ctx context.Context, amountMinorUnits int64, token, orderRef string) (*ChargeResult, error)
	// CreateProfile creates an external vault profile for the customer.
	CreateProfile(ctx context.Context, c Customer) (*Profile, error)
	// CreateCard converts a single-use token into a permanent vault card
	// token on the given profile.
	CreateCard(ctx context.Context, profileID, singleUseToken string) (string, error)
	// ListCards returns the cards stored on a profile.
	ListCards(ctx context.Context, profileID string) ([]CardSummary, error)
}

// CardTypeNames maps gateway card type codes to display names for
// notification payloads.
var CardTypeNames = map[string]string{
	"VI":   "Visa",
	"MC":   "MasterCard",
	"AM":   "American Express",
	"DI":   "Discover",
	"JC":   "JCB",
	"NONE": "None",
}

// CardTypeName resolves a gateway card type code, falling back to the raw
// code for unknown types.
func CardTypeName(code string) string {
	if name, ok := CardTypeNames[code]; ok {
		return name
	}
	return code
}
