package coupon

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/volna/booking-api/internal/domain/catalog"
)

// ErrCodeTaken is returned when creating a coupon with an explicit code that
// already exists.
var ErrCodeTaken = errors.New("coupon code already exists")

// Service manages coupon lifecycle: creation with code generation and
// updates under the value/percent mutual-exclusivity rule.
type Service struct {
	repo Repository
	gen  *CodeGenerator
}

// NewService creates a coupon management Service.
func NewService(repo Repository, gen *CodeGenerator) *Service {
	return &Service{repo: repo, gen: gen}
}

// CreateParams holds the input for creating a coupon. Code is optional; a
// unique one is generated when absent.
type CreateParams struct {
	Code                 string
	Value                decimal.Decimal
	PercentOff           int
	MaxUse               int
	MaxUsePerUser        int
	ApplicableKinds      []string
	ApplicableProductIDs []string
	Details              string
}

// Create validates the discount shape, resolves a unique code and persists
// the coupon. Exactly one of Value / PercentOff must be set.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Coupon, error) {
	hasValue := p.Value.IsPositive()
	hasPercent := p.PercentOff > 0
	if hasValue == hasPercent {
		return nil, ErrConflictingDiscount
	}
	if p.PercentOff < 0 || p.PercentOff > 100 {
		return nil, ErrConflictingDiscount
	}

	code := p.Code
	if code != "" {
		taken, err := s.gen.Reserve(ctx, code)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrCodeTaken
		}
	} else {
		generated, err := s.gen.Generate(ctx)
		if err != nil {
			return nil, err
		}
		code = generated
	}

	c := &Coupon{
		Code:                 code,
		Value:                p.Value,
		PercentOff:           p.PercentOff,
		MaxUse:               p.MaxUse,
		MaxUsePerUser:        p.MaxUsePerUser,
		ApplicableKinds:      parseKinds(p.ApplicableKinds),
		ApplicableProductIDs: p.ApplicableProductIDs,
		Details:              p.Details,
		Active:               true,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, errors.Wrapf(err, "create coupon %s", code)
	}
	return c, nil
}

// UpdateParams holds a partial coupon update. Nil fields are left unchanged.
type UpdateParams struct {
	Value                *decimal.Decimal
	PercentOff           *int
	MaxUse               *int
	MaxUsePerUser        *int
	ApplicableKinds      []string
	ApplicableProductIDs []string
	Details              *string
	Active               *bool
}

// Update applies the partial update to an existing coupon, re-validating the
// discount mutual exclusivity against the resulting state: the updated
// coupon must still carry exactly one of value / percent_off.
func (s *Service) Update(ctx context.Context, code string, p UpdateParams) (*Coupon, error) {
	c, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if p.Value != nil {
		c.Value = *p.Value
	}
	if p.PercentOff != nil {
		c.PercentOff = *p.PercentOff
	}
	hasValue := c.Value.IsPositive()
	hasPercent := c.PercentOff > 0
	if hasValue == hasPercent {
		return nil, ErrConflictingDiscount
	}

	if p.MaxUse != nil {
		c.MaxUse = *p.MaxUse
	}
	if p.MaxUsePerUser != nil {
		c.MaxUsePerUser = *p.MaxUsePerUser
	}
	if p.ApplicableKinds != nil {
		c.ApplicableKinds = parseKinds(p.ApplicableKinds)
	}
	if p.ApplicableProductIDs != nil {
		c.ApplicableProductIDs = p.ApplicableProductIDs
	}
	if p.Details != nil {
		c.Details = *p.Details
	}
	if p.Active != nil {
		c.Active = *p.Active
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, errors.Wrapf(err, "update coupon %s", code)
	}
	return c, nil
}

// parseKinds keeps only recognised product kinds.
func parseKinds(kinds []string) []catalog.Kind {
	out := make([]catalog.Kind, 0, len(kinds))
	for _, k := range kinds {
		if kind := catalog.Kind(k); kind.Valid() {
			out = append(out, kind)
		}
	}
	return out
}
