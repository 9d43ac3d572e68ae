package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volna/booking-api/internal/domain/auth"
	"github.com/volna/booking-api/internal/domain/booking"
	"github.com/volna/booking-api/internal/domain/catalog"
	"github.com/volna/booking-api/internal/domain/coupon"
	"github.com/volna/booking-api/internal/domain/identity"
	"github.com/volna/booking-api/internal/domain/order"
	"github.com/volna/booking-api/internal/domain/payment"
)

type fakeUsers struct {
	users map[string]identity.User
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*identity.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return &u, nil
}

type fakeProducts struct {
	products []catalog.Product
}

func (f *fakeProducts) List(context.Context) ([]catalog.Product, error) {
	return f.products, nil
}

func (f *fakeProducts) GetByRef(_ context.Context, ref catalog.Ref) (*catalog.Product, error) {
	for i := range f.products {
		if f.products[i].Ref() == ref {
			return &f.products[i], nil
		}
	}
	return nil, catalog.ErrNotFound
}

type fakeCoupons struct {
	coupons map[string]*coupon.Coupon
}

func (f *fakeCoupons) GetByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	c, ok := f.coupons[code]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCoupons) Create(_ context.Context, c *coupon.Coupon) error {
	f.coupons[c.Code] = c
	return nil
}

func (f *fakeCoupons) Update(_ context.Context, c *coupon.Coupon) error {
	if _, ok := f.coupons[c.Code]; !ok {
		return coupon.ErrNotFound
	}
	f.coupons[c.Code] = c
	return nil
}

func (f *fakeCoupons) ListCodes(context.Context) ([]string, error) {
	codes := make([]string, 0, len(f.coupons))
	for code := range f.coupons {
		codes = append(codes, code)
	}
	return codes, nil
}

type fakeTokens struct {
	byHash map[string]auth.TokenInfo
}

func (f *fakeTokens) FindByHash(_ context.Context, hash string) (*auth.TokenInfo, error) {
	info, ok := f.byHash[hash]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return &info, nil
}

const testPepper = "test-pepper"

func hashToken(token string) string {
	mac := hmac.New(sha256.New, []byte(testPepper))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

type fixture struct {
	echo    *echo.Echo
	users   *fakeUsers
	coupons *fakeCoupons
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	users := &fakeUsers{users: map[string]identity.User{
		"staff-1":  {ID: "staff-1", IsStaff: true},
		"member-1": {ID: "member-1"},
	}}
	products := &fakeProducts{products: []catalog.Product{
		{
			ID: "member-regular", Kind: catalog.KindMembership, Name: "Regular",
			Price: decimal.RequireFromString("40.00"), Available: true, DurationDays: 365,
		},
		{
			ID: "slot-1", Kind: catalog.KindTimeslot, Name: "Monday morning",
			Price: decimal.RequireFromString("1"), Available: true,
			WorkplaceID: "wp-1", WorkplaceSeats: 6,
			StartAt: time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC),
			EndAt:   time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC),
		},
	}}
	couponRepo := &fakeCoupons{coupons: make(map[string]*coupon.Coupon)}

	gen, err := coupon.NewCodeGenerator(context.Background(), couponRepo)
	require.NoError(t, err)
	couponSvc := coupon.NewService(couponRepo, gen)

	tokens := &fakeTokens{byHash: map[string]auth.TokenInfo{
		hashToken("staff-key"):  {TokenHash: hashToken("staff-key"), UserID: "staff-1"},
		hashToken("member-key"): {TokenHash: hashToken("member-key"), UserID: "member-1"},
	}}

	e := echo.New()
	h := New(products, users, &stubProfiles{}, &stubGateway{}, nil, nil, couponSvc)
	authn := NewAuthenticator(tokens, []byte(testPepper))
	h.Register(e, authn.Middleware)

	return &fixture{echo: e, users: users, coupons: couponRepo}
}

type stubProfiles struct{}

func (stubProfiles) GetByUser(context.Context, string) (*payment.CustomerProfile, error) {
	return nil, payment.ErrNoProfile
}
func (stubProfiles) Create(context.Context, *payment.CustomerProfile) error { return nil }

type stubGateway struct{}

func (stubGateway) Charge(context.Context, int64, string, string) (*payment.ChargeResult, error) {
	return nil, &payment.APIError{Message: "not wired"}
}
func (stubGateway) CreateProfile(context.Context, payment.Customer) (*payment.Profile, error) {
	return nil, &payment.APIError{Message: "not wired"}
}
func (stubGateway) CreateCard(context.Context, string, string) (string, error) {
	return "", &payment.APIError{Message: "not wired"}
}
func (stubGateway) ListCards(context.Context, string) ([]payment.CardSummary, error) {
	return nil, nil
}

func doRequest(f *fixture, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Token "+token)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)

	rec := doRequest(f, http.MethodGet, "/api/products", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)

	membership := resp[0]
	assert.Equal(t, "membership", membership["kind"])
	assert.Equal(t, float64(365), membership["duration_days"])
	assert.NotContains(t, membership, "seats")
	assert.NotContains(t, membership, "start_at")

	slot := resp[1]
	assert.Equal(t, "timeslot", slot["kind"])
	assert.Equal(t, float64(6), slot["seats"])
	assert.Contains(t, slot, "start_at")
	assert.Equal(t, "wp-1", slot["workplace_id"])
}

func TestAuthMiddleware(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Bearer staff-key", http.StatusUnauthorized},
		{"unknown token", "Token bogus", http.StatusUnauthorized},
		{"valid token", "Token member-key", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// /payment-profile answers 404 (no profile stored) once the
			// request passes authentication.
			req := httptest.NewRequest(http.MethodGet, "/api/payment-profile", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			f.echo.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestStaffGate(t *testing.T) {
	f := newFixture(t)

	body := `{"percent_off": 10, "applicable_kinds": ["membership"]}`

	rec := doRequest(f, http.MethodPost, "/api/coupons", "member-key", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(f, http.MethodPost, "/api/coupons", "staff-key", body)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateCoupon(t *testing.T) {
	f := newFixture(t)

	rec := doRequest(f, http.MethodPost, "/api/coupons", "staff-key",
		`{"code": "WELCOME1", "percent_off": 15, "applicable_kinds": ["membership"], "max_use_per_user": 1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp couponResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "WELCOME1", resp.Code)
	assert.Equal(t, 15, resp.PercentOff)
	assert.Equal(t, 1, resp.MaxUsePerUser)
	assert.True(t, resp.Active)

	// Same code again conflicts.
	rec = doRequest(f, http.MethodPost, "/api/coupons", "staff-key",
		`{"code": "WELCOME1", "percent_off": 15}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Both discount shapes at once is a client error.
	rec = doRequest(f, http.MethodPost, "/api/coupons", "staff-key",
		`{"value": "5.00", "percent_off": 15}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateCoupon(t *testing.T) {
	f := newFixture(t)
	f.coupons.coupons["KEEP1234"] = &coupon.Coupon{Code: "KEEP1234", PercentOff: 10, Active: true}

	rec := doRequest(f, http.MethodPatch, "/api/coupons/KEEP1234", "staff-key",
		`{"active": false, "max_use": 5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp couponResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Active)
	assert.Equal(t, 5, resp.MaxUse)
	assert.Equal(t, 10, resp.PercentOff)

	rec = doRequest(f, http.MethodPatch, "/api/coupons/MISSING1", "staff-key", `{"max_use": 5}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCustomPayment_Validation(t *testing.T) {
	f := newFixture(t)

	rec := doRequest(f, http.MethodPost, "/api/custom-payments", "staff-key",
		`{"name": "", "price": "10.00"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(f, http.MethodPost, "/api/custom-payments", "staff-key",
		`{"name": "Locker", "price": "-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty cart", order.ErrEmptyCart, http.StatusBadRequest},
		{"duplicate membership", order.ErrDuplicateMembership, http.StatusBadRequest},
		{"insufficient tickets", order.ErrInsufficientTickets, http.StatusBadRequest},
		{"incomplete profile", order.ErrIncompleteProfile, http.StatusBadRequest},
		{"coupon unknown", coupon.ErrNotFound, http.StatusBadRequest},
		{"coupon exhausted", coupon.ErrExhausted, http.StatusBadRequest},
		{"coupon expired", coupon.ErrExpired, http.StatusBadRequest},
		{"payment required", order.ErrPaymentRequired, http.StatusPaymentRequired},
		{"gateway rejection", &payment.APIError{Message: "declined"}, http.StatusPaymentRequired},
		{"code taken", coupon.ErrCodeTaken, http.StatusConflict},
		{"capacity exceeded", &booking.CapacityExceededError{}, http.StatusConflict},
		{"duplicate reservation", &booking.DuplicateReservationError{}, http.StatusConflict},
		{"user missing", identity.ErrNotFound, http.StatusNotFound},
		{"no profile", payment.ErrNoProfile, http.StatusNotFound},
		{"product missing", catalog.ErrNotFound, http.StatusUnprocessableEntity},
		{"bad reference", &order.InvalidReferenceError{}, http.StatusUnprocessableEntity},
		{"bad quantity", &order.InvalidQuantityError{}, http.StatusBadRequest},
		{"not eligible", &order.EligibilityError{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var httpErr *echo.HTTPError
			require.ErrorAs(t, mapError(tt.err), &httpErr)
			assert.Equal(t, tt.want, httpErr.Code)
		})
	}
}
