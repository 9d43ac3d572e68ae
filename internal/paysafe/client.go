// Package paysafe implements the payment gateway contract against the
// Paysafe REST API: card-payment authorizations with immediate settlement
// and the customer vault for profiles and stored cards.
package paysafe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/volna/booking-api/internal/domain/payment"
)

var _ payment.Gateway = (*Client)(nil)

// Client is a Paysafe REST API client.
type Client struct {
	baseURL   string
	accountID string
	apiKey    string
	http      *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// NewClient creates a Paysafe client for the given merchant account.
func NewClient(baseURL, accountID, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:   baseURL,
		accountID: accountID,
		apiKey:    apiKey,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chargeRequest struct {
	MerchantRefNum string     `json:"merchantRefNum"`
	Amount         int64      `json:"amount"`
	SettleWithAuth bool       `json:"settleWithAuth"`
	Card           chargeCard `json:"card"`
}

type chargeCard struct {
	PaymentToken string `json:"paymentToken"`
}

type chargeResponse struct {
	ID             string `json:"id"`
	MerchantRefNum string `json:"merchantRefNum"`
	Settlements    []struct {
		ID string `json:"id"`
	} `json:"settlements"`
	Card struct {
		LastDigits string `json:"lastDigits"`
		Type       string `json:"type"`
	} `json:"card"`
}

// Charge authorizes and settles the amount in one call (settleWithAuth).
// Never retried: a second call would charge the card again.
func (c *Client) Charge(ctx context.Context, amountMinorUnits int64, token, orderRef string) (*payment.ChargeResult, error) {
	req := chargeRequest{
		MerchantRefNum: orderRef,
		Amount:         amountMinorUnits,
		SettleWithAuth: true,
		Card:           chargeCard{PaymentToken: token},
	}

	var resp chargeResponse
	path := fmt.Sprintf("/cardpayments/v1/accounts/%s/auths", c.accountID)
	if err := c.post(ctx, path, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Settlements) == 0 {
		return nil, &payment.APIError{Message: "authorization settled without a settlement record"}
	}

	return &payment.ChargeResult{
		AuthorizationID:   resp.ID,
		SettlementID:      resp.Settlements[0].ID,
		MerchantReference: resp.MerchantRefNum,
		CardLastDigits:    resp.Card.LastDigits,
		CardType:          resp.Card.Type,
	}, nil
}

type profileRequest struct {
	MerchantCustomerID string `json:"merchantCustomerId"`
	Locale             string `json:"locale"`
	FirstName          string `json:"firstName"`
	LastName           string `json:"lastName"`
	Email              string `json:"email"`
}

type profileResponse struct {
	ID string `json:"id"`
}

// CreateProfile creates a customer vault profile keyed by the local user ID.
func (c *Client) CreateProfile(ctx context.Context, cust payment.Customer) (*payment.Profile, error) {
	req := profileRequest{
		MerchantCustomerID: cust.ID,
		Locale:             "en_US",
		FirstName:          cust.FirstName,
		LastName:           cust.LastName,
		Email:              cust.Email,
	}

	var resp profileResponse
	if err := c.post(ctx, "/customervault/v1/profiles", req, &resp); err != nil {
		return nil, err
	}

	return &payment.Profile{
		ExternalID: resp.ID,
		URL:        c.baseURL + "/customervault/v1/profiles/" + resp.ID,
	}, nil
}

type cardRequest struct {
	SingleUseToken string `json:"singleUseToken"`
}

type cardResponse struct {
	PaymentToken string `json:"paymentToken"`
}

// CreateCard converts a single-use token into a permanent card on the
// profile and returns the reusable payment token.
func (c *Client) CreateCard(ctx context.Context, profileID, singleUseToken string) (string, error) {
	var resp cardResponse
	path := "/customervault/v1/profiles/" + profileID + "/cards"
	if err := c.post(ctx, path, cardRequest{SingleUseToken: singleUseToken}, &resp); err != nil {
		return "", err
	}
	return resp.PaymentToken, nil
}

type cardsResponse struct {
	Cards []struct {
		PaymentToken string `json:"paymentToken"`
		LastDigits   string `json:"lastDigits"`
		CardType     string `json:"cardType"`
		CardExpiry   struct {
			Month int `json:"month"`
			Year  int `json:"year"`
		} `json:"cardExpiry"`
	} `json:"cards"`
}

// ListCards returns the cards stored on the profile.
func (c *Client) ListCards(ctx context.Context, profileID string) ([]payment.CardSummary, error) {
	var resp cardsResponse
	path := "/customervault/v1/profiles/" + profileID + "?fields=cards"
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	cards := make([]payment.CardSummary, len(resp.Cards))
	for i, card := range resp.Cards {
		cards[i] = payment.CardSummary{
			PaymentToken: card.PaymentToken,
			LastDigits:   card.LastDigits,
			CardType:     card.CardType,
			ExpiryMonth:  card.CardExpiry.Month,
			ExpiryYear:   card.CardExpiry.Year,
		}
	}
	return cards, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}

	return c.do(req, out)
}

type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Basic "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "gateway request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read gateway response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return &payment.APIError{Message: apiErr.Error.Message}
		}
		return &payment.APIError{Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "decode gateway response")
	}
	return nil
}
