// Package handler exposes the booking API over HTTP. Handlers translate
// between transport DTOs and domain types; all business rules live in the
// domain services.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/volna/booking-api/internal/domain/catalog"
	"github.com/volna/booking-api/internal/domain/coupon"
	"github.com/volna/booking-api/internal/domain/identity"
	"github.com/volna/booking-api/internal/domain/order"
	"github.com/volna/booking-api/internal/domain/payment"
)

// Handler carries the domain dependencies of the HTTP surface.
type Handler struct {
	products       catalog.Repository
	users          identity.Repository
	profiles       payment.ProfileRepository
	gateway        payment.Gateway
	checkout       *order.Checkout
	customPayments *order.CustomPayments
	coupons        *coupon.Service
}

// New constructs a Handler with the required domain dependencies.
func New(
	products catalog.Repository,
	users identity.Repository,
	profiles payment.ProfileRepository,
	gateway payment.Gateway,
	checkout *order.Checkout,
	customPayments *order.CustomPayments,
	coupons *coupon.Service,
) *Handler {
	return &Handler{
		products:       products,
		users:          users,
		profiles:       profiles,
		gateway:        gateway,
		checkout:       checkout,
		customPayments: customPayments,
		coupons:        coupons,
	}
}

// Register mounts all routes on the echo instance. The authn middleware
// resolves the requesting user; staff-only routes add the staff gate on
// top.
func (h *Handler) Register(e *echo.Echo, authn echo.MiddlewareFunc) {
	api := e.Group("/api")
	api.GET("/products", h.ListProducts)

	authed := api.Group("", authn)
	authed.POST("/orders", h.PlaceOrder)
	authed.GET("/payment-profile", h.GetPaymentProfile)

	staff := authed.Group("", h.requireStaff)
	staff.POST("/custom-payments", h.CreateCustomPayment)
	staff.POST("/coupons", h.CreateCoupon)
	staff.PATCH("/coupons/:code", h.UpdateCoupon)
}

// requireStaff rejects non-staff users on management routes.
func (h *Handler) requireStaff(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := h.users.GetByID(c.Request().Context(), UserID(c))
		if err != nil {
			return mapError(err)
		}
		if !user.IsStaff {
			return echo.NewHTTPError(http.StatusForbidden, "staff access required")
		}
		return next(c)
	}
}
