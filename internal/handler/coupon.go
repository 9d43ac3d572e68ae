package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/volna/booking-api/internal/domain/coupon"
)

type createCouponReq struct {
	Code                 string          `json:"code"`
	Value                decimal.Decimal `json:"value"`
	PercentOff           int             `json:"percent_off"`
	MaxUse               int             `json:"max_use"`
	MaxUsePerUser        int             `json:"max_use_per_user"`
	ApplicableKinds      []string        `json:"applicable_kinds"`
	ApplicableProductIDs []string        `json:"applicable_product_ids"`
	Details              string          `json:"details"`
}

type updateCouponReq struct {
	Value                *decimal.Decimal `json:"value"`
	PercentOff           *int             `json:"percent_off"`
	MaxUse               *int             `json:"max_use"`
	MaxUsePerUser        *int             `json:"max_use_per_user"`
	ApplicableKinds      []string         `json:"applicable_kinds"`
	ApplicableProductIDs []string         `json:"applicable_product_ids"`
	Details              *string          `json:"details"`
	Active               *bool            `json:"active"`
}

type couponResp struct {
	Code                 string          `json:"code"`
	Value                decimal.Decimal `json:"value"`
	PercentOff           int             `json:"percent_off"`
	MaxUse               int             `json:"max_use"`
	MaxUsePerUser        int             `json:"max_use_per_user"`
	ApplicableKinds      []string        `json:"applicable_kinds"`
	ApplicableProductIDs []string        `json:"applicable_product_ids"`
	Details              string          `json:"details"`
	Active               bool            `json:"active"`
	StartAt              *time.Time      `json:"start_at,omitempty"`
	EndAt                *time.Time      `json:"end_at,omitempty"`
}

// CreateCoupon creates a coupon. When no code is supplied a unique one is
// generated.
func (h *Handler) CreateCoupon(c echo.Context) error {
	var req createCouponReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	created, err := h.coupons.Create(c.Request().Context(), coupon.CreateParams{
		Code:                 req.Code,
		Value:                req.Value,
		PercentOff:           req.PercentOff,
		MaxUse:               req.MaxUse,
		MaxUsePerUser:        req.MaxUsePerUser,
		ApplicableKinds:      req.ApplicableKinds,
		ApplicableProductIDs: req.ApplicableProductIDs,
		Details:              req.Details,
	})
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, toCouponResp(created))
}

// UpdateCoupon applies a partial update to an existing coupon.
func (h *Handler) UpdateCoupon(c echo.Context) error {
	var req updateCouponReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	updated, err := h.coupons.Update(c.Request().Context(), c.Param("code"), coupon.UpdateParams{
		Value:                req.Value,
		PercentOff:           req.PercentOff,
		MaxUse:               req.MaxUse,
		MaxUsePerUser:        req.MaxUsePerUser,
		ApplicableKinds:      req.ApplicableKinds,
		ApplicableProductIDs: req.ApplicableProductIDs,
		Details:              req.Details,
		Active:               req.Active,
	})
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return mapError(err)
	}

	return c.JSON(http.StatusOK, toCouponResp(updated))
}

func toCouponResp(cp *coupon.Coupon) couponResp {
	kinds := make([]string, len(cp.ApplicableKinds))
	for i, k := range cp.ApplicableKinds {
		kinds[i] = string(k)
	}
	return couponResp{
		Code:                 cp.Code,
		Value:                cp.Value,
		PercentOff:           cp.PercentOff,
		MaxUse:               cp.MaxUse,
		MaxUsePerUser:        cp.MaxUsePerUser,
		ApplicableKinds:      kinds,
		ApplicableProductIDs: cp.ApplicableProductIDs,
		Details:              cp.Details,
		Active:               cp.Active,
		StartAt:              cp.StartAt,
		EndAt:                cp.EndAt,
	}
}
