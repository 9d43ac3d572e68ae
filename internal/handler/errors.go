package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"

	"github.com/volna/booking-api/internal/domain/booking"
	"github.com/volna/booking-api/internal/domain/catalog"
	"github.com/volna/booking-api/internal/domain/coupon"
	"github.com/volna/booking-api/internal/domain/identity"
	"github.com/volna/booking-api/internal/domain/order"
	"github.com/volna/booking-api/internal/domain/payment"
)

// mapError converts domain errors to HTTP errors. Unknown errors pass
// through and surface as 500 via echo's error handler.
func mapError(err error) error {
	switch {
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrDuplicateMembership),
		errors.Is(err, order.ErrInsufficientTickets),
		errors.Is(err, order.ErrIncompleteProfile),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, coupon.ErrExhausted),
		errors.Is(err, coupon.ErrUserExhausted),
		errors.Is(err, coupon.ErrNoEligibleLine),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrConflictingDiscount),
		errors.Is(err, coupon.ErrCodeSpaceExhausted):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())

	case errors.Is(err, order.ErrPaymentRequired):
		return echo.NewHTTPError(http.StatusPaymentRequired, err.Error())

	case errors.Is(err, coupon.ErrCodeTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())

	case errors.Is(err, identity.ErrNotFound),
		errors.Is(err, payment.ErrNoProfile):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())

	case errors.Is(err, catalog.ErrNotFound):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	var (
		invalidQty *order.InvalidQuantityError
		invalidRef *order.InvalidReferenceError
		eligErr    *order.EligibilityError
		capErr     *booking.CapacityExceededError
		dupErr     *booking.DuplicateReservationError
		apiErr     *payment.APIError
	)
	switch {
	case errors.As(err, &invalidQty), errors.As(err, &eligErr):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.As(err, &invalidRef):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &capErr), errors.As(err, &dupErr):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.As(err, &apiErr):
		return echo.NewHTTPError(http.StatusPaymentRequired, err.Error())
	}

	return err
}
