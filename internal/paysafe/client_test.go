package paysafe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volna/booking-api/internal/domain/payment"
)

func TestCharge(t *testing.T) {
	var got chargeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cardpayments/v1/accounts/acct-1/auths", r.URL.Path)
		assert.Equal(t, "Basic test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "auth-123",
			"merchantRefNum": "order-1",
			"settlements": [{"id": "settle-456"}],
			"card": {"lastDigits": "1111", "type": "VI"}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "acct-1", "test-key", WithHTTPClient(srv.Client()))

	res, err := c.Charge(context.Background(), 4599, "tok-1", "order-1")
	require.NoError(t, err)

	assert.Equal(t, int64(4599), got.Amount)
	assert.True(t, got.SettleWithAuth)
	assert.Equal(t, "tok-1", got.Card.PaymentToken)
	assert.Equal(t, "order-1", got.MerchantRefNum)

	assert.Equal(t, "auth-123", res.AuthorizationID)
	assert.Equal(t, "settle-456", res.SettlementID)
	assert.Equal(t, "order-1", res.MerchantReference)
	assert.Equal(t, "1111", res.CardLastDigits)
	assert.Equal(t, "VI", res.CardType)
}

func TestCharge_Declined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error": {"code": "3022", "message": "The card has been declined"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "acct-1", "test-key")

	_, err := c.Charge(context.Background(), 100, "tok-1", "order-1")
	var apiErr *payment.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "declined")
}

func TestCharge_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "acct-1", "test-key")

	_, err := c.Charge(context.Background(), 100, "tok-1", "order-1")
	var apiErr *payment.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "502")
}

func TestCharge_MissingSettlement(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id": "auth-123", "settlements": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "acct-1", "test-key")

	_, err := c.Charge(context.Background(), 100, "tok-1", "order-1")
	var apiErr *payment.APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestCreateProfile(t *testing.T) {
	var got profileRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customervault/v1/profiles", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id": "vault-789"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "acct-1", "test-key")

	p, err := c.CreateProfile(context.Background(), payment.Customer{
		ID: "user-1", Email: "alice@example.com", FirstName: "Alice", LastName: "Ng",
	})
	require.NoError(t, err)

	assert.Equal(t, "user-1", got.MerchantCustomerID)
	assert.Equal(t, "en_US", got.Locale)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "vault-789", p.ExternalID)
	assert.Equal(t, srv.URL+"/customervault/v1/profiles/vault-789", p.URL)
}

func TestCreateCard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customervault/v1/profiles/vault-789/cards", r.URL.Path)
		var got cardRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "single-use-1", got.SingleUseToken)
		_, _ = w.Write([]byte(`{"paymentToken": "perm-token-1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "acct-1", "test-key")

	token, err := c.CreateCard(context.Background(), "vault-789", "single-use-1")
	require.NoError(t, err)
	assert.Equal(t, "perm-token-1", token)
}

func TestListCards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/customervault/v1/profiles/vault-789", r.URL.Path)
		assert.Equal(t, "cards", r.URL.Query().Get("fields"))
		_, _ = w.Write([]byte(`{
			"cards": [{
				"paymentToken": "perm-token-1",
				"lastDigits": "1111",
				"cardType": "VI",
				"cardExpiry": {"month": 9, "year": 2028}
			}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "acct-1", "test-key")

	cards, err := c.ListCards(context.Background(), "vault-789")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "perm-token-1", cards[0].PaymentToken)
	assert.Equal(t, "VI", cards[0].CardType)
	assert.Equal(t, 9, cards[0].ExpiryMonth)
	assert.Equal(t, 2028, cards[0].ExpiryYear)
}
