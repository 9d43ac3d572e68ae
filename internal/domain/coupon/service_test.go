package coupon

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volna/booking-api/internal/domain/catalog"
)

// fakeRepo is an in-memory coupon.Repository.
type fakeRepo struct {
	coupons map[string]*Coupon
}

func newFakeRepo(codes ...string) *fakeRepo {
	r := &fakeRepo{coupons: make(map[string]*Coupon)}
	for _, code := range codes {
		r.coupons[code] = &Coupon{Code: code, PercentOff: 10, Active: true}
	}
	return r
}

func (f *fakeRepo) GetByCode(_ context.Context, code string) (*Coupon, error) {
	c, ok := f.coupons[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeRepo) Create(_ context.Context, c *Coupon) error {
	f.coupons[c.Code] = c
	return nil
}

func (f *fakeRepo) Update(_ context.Context, c *Coupon) error {
	if _, ok := f.coupons[c.Code]; !ok {
		return ErrNotFound
	}
	f.coupons[c.Code] = c
	return nil
}

func (f *fakeRepo) ListCodes(_ context.Context) ([]string, error) {
	codes := make([]string, 0, len(f.coupons))
	for code := range f.coupons {
		codes = append(codes, code)
	}
	return codes, nil
}

func newService(t *testing.T, repo *fakeRepo) *Service {
	t.Helper()
	gen, err := NewCodeGenerator(context.Background(), repo)
	require.NoError(t, err)
	return NewService(repo, gen)
}

func TestServiceCreate_GeneratesCode(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(t, repo)

	c, err := svc.Create(context.Background(), CreateParams{
		PercentOff:      20,
		ApplicableKinds: []string{"membership", "package"},
		Details:         "20% off",
	})
	require.NoError(t, err)

	assert.Len(t, c.Code, codeLength)
	for _, r := range c.Code {
		assert.Contains(t, codeAlphabet, string(r))
	}
	assert.True(t, c.Active)
	assert.Equal(t, []catalog.Kind{catalog.KindMembership, catalog.KindPackage}, c.ApplicableKinds)
	assert.Contains(t, repo.coupons, c.Code)
}

func TestServiceCreate_ExplicitCode(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(t, repo)

	c, err := svc.Create(context.Background(), CreateParams{
		Code:  "SUMMER26",
		Value: decimal.RequireFromString("5.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "SUMMER26", c.Code)
}

func TestServiceCreate_ExplicitCodeTaken(t *testing.T) {
	repo := newFakeRepo("SUMMER26")
	svc := newService(t, repo)

	_, err := svc.Create(context.Background(), CreateParams{
		Code:       "SUMMER26",
		PercentOff: 10,
	})
	assert.ErrorIs(t, err, ErrCodeTaken)
}

func TestServiceCreate_DiscountExclusivity(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(t, repo)

	tests := []struct {
		name   string
		params CreateParams
	}{
		{"neither value nor percent", CreateParams{}},
		{"both value and percent", CreateParams{Value: decimal.RequireFromString("5.00"), PercentOff: 10}},
		{"percent above 100", CreateParams{PercentOff: 101}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.params)
			assert.ErrorIs(t, err, ErrConflictingDiscount)
		})
	}
}

func TestServiceCreate_IgnoresUnknownKinds(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(t, repo)

	c, err := svc.Create(context.Background(), CreateParams{
		PercentOff:      10,
		ApplicableKinds: []string{"membership", "spaceship"},
	})
	require.NoError(t, err)
	assert.Equal(t, []catalog.Kind{catalog.KindMembership}, c.ApplicableKinds)
}

func TestServiceUpdate_PartialFields(t *testing.T) {
	repo := newFakeRepo("KEEP1234")
	svc := newService(t, repo)

	maxUse := 5
	details := "updated"
	c, err := svc.Update(context.Background(), "KEEP1234", UpdateParams{
		MaxUse:  &maxUse,
		Details: &details,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, c.MaxUse)
	assert.Equal(t, "updated", c.Details)
	// Untouched fields survive.
	assert.Equal(t, 10, c.PercentOff)
}

func TestServiceUpdate_RevalidatesExclusivity(t *testing.T) {
	repo := newFakeRepo("KEEP1234")
	svc := newService(t, repo)

	// Adding a value without clearing the percent leaves both set.
	value := decimal.RequireFromString("5.00")
	_, err := svc.Update(context.Background(), "KEEP1234", UpdateParams{Value: &value})
	assert.ErrorIs(t, err, ErrConflictingDiscount)

	// Swapping is fine when the percent is cleared in the same update.
	zero := 0
	c, err := svc.Update(context.Background(), "KEEP1234", UpdateParams{Value: &value, PercentOff: &zero})
	require.NoError(t, err)
	assert.True(t, value.Equal(c.Value))
	assert.Equal(t, 0, c.PercentOff)
}

func TestServiceUpdate_UnknownCode(t *testing.T) {
	svc := newService(t, newFakeRepo())

	active := false
	_, err := svc.Update(context.Background(), "MISSING1", UpdateParams{Active: &active})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCodeGenerator_AvoidsIssuedCodes(t *testing.T) {
	repo := newFakeRepo()
	gen, err := NewCodeGenerator(context.Background(), repo)
	require.NoError(t, err)

	// Force a deterministic sequence: first candidate collides with an
	// issued code, the second is fresh.
	first := strings.Repeat(string(codeAlphabet[0]), codeLength)
	repo.coupons[first] = &Coupon{Code: first}
	gen.filter.AddString(first)

	calls := 0
	gen.randFn = func(n int) int {
		calls++
		if calls <= codeLength {
			return 0
		}
		return 1
	}

	code, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, code)
}

func TestCodeGenerator_ExhaustsAttemptBudget(t *testing.T) {
	repo := newFakeRepo()
	gen, err := NewCodeGenerator(context.Background(), repo)
	require.NoError(t, err)

	// Every candidate collides.
	only := strings.Repeat(string(codeAlphabet[0]), codeLength)
	repo.coupons[only] = &Coupon{Code: only}
	gen.filter.AddString(only)
	gen.randFn = func(int) int { return 0 }

	_, err = gen.Generate(context.Background())
	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
}

func TestCodeGenerator_ReserveReportsTaken(t *testing.T) {
	repo := newFakeRepo("TAKEN123")
	gen, err := NewCodeGenerator(context.Background(), repo)
	require.NoError(t, err)

	taken, err := gen.Reserve(context.Background(), "TAKEN123")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = gen.Reserve(context.Background(), "FRESH123")
	require.NoError(t, err)
	assert.False(t, taken)

	// Once persisted, the reserved code reads back as taken.
	repo.coupons["FRESH123"] = &Coupon{Code: "FRESH123"}
	taken, err = gen.Reserve(context.Background(), "FRESH123")
	require.NoError(t, err)
	assert.True(t, taken)
}
