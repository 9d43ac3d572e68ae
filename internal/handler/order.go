package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/volna/booking-api/internal/domain/catalog"
	"github.com/volna/booking-api/internal/domain/order"
)

type orderLineReq struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type placeOrderReq struct {
	Lines          []orderLineReq `json:"lines"`
	CouponCode     string         `json:"coupon_code"`
	PaymentToken   string         `json:"payment_token"`
	SingleUseToken string         `json:"single_use_token"`
}

type orderLineResp struct {
	ID             string          `json:"id"`
	Kind           string          `json:"kind"`
	ProductID      string          `json:"product_id"`
	Quantity       int             `json:"quantity"`
	Cost           decimal.Decimal `json:"cost"`
	CouponCode     string          `json:"coupon_code,omitempty"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
}

type reservationResp struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
}

type orderResp struct {
	ID              string            `json:"id"`
	TransactionAt   time.Time         `json:"transaction_at"`
	ReferenceNumber string            `json:"reference_number"`
	Lines           []orderLineResp   `json:"lines"`
	Reservations    []reservationResp `json:"reservations,omitempty"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	Tax             decimal.Decimal   `json:"tax"`
	Total           decimal.Decimal   `json:"total"`
	Discount        decimal.Decimal   `json:"discount"`
}

// PlaceOrder runs the checkout pipeline for the authenticated user.
func (h *Handler) PlaceOrder(c echo.Context) error {
	var req placeOrderReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	lines := make([]order.CartLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = order.CartLine{
			Ref:      catalog.Ref{Kind: catalog.Kind(l.Kind), ID: l.ID},
			Quantity: l.Quantity,
		}
	}

	result, err := h.checkout.PlaceOrder(c.Request().Context(), order.Cart{
		UserID:         UserID(c),
		Lines:          lines,
		CouponCode:     req.CouponCode,
		PaymentToken:   req.PaymentToken,
		SingleUseToken: req.SingleUseToken,
	})
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, toOrderResp(result))
}

func toOrderResp(r *order.Result) orderResp {
	resp := orderResp{
		ID:              r.Order.ID,
		TransactionAt:   r.Order.TransactionAt,
		ReferenceNumber: r.Order.ReferenceNumber,
		Lines:           make([]orderLineResp, len(r.Order.Lines)),
		Subtotal:        r.Totals.Subtotal,
		Tax:             r.Totals.Tax,
		Total:           r.Totals.Total.Round(2),
		Discount:        r.Discount,
	}
	for i, l := range r.Order.Lines {
		resp.Lines[i] = orderLineResp{
			ID:             l.ID,
			Kind:           string(l.Ref.Kind),
			ProductID:      l.Ref.ID,
			Quantity:       l.Quantity,
			Cost:           l.Cost,
			CouponCode:     l.CouponCode,
			CouponDiscount: l.CouponDiscount,
		}
	}
	for _, res := range r.Reservations {
		resp.Reservations = append(resp.Reservations, reservationResp{
			ID:        res.ID,
			ProductID: res.ProductID,
		})
	}
	return resp
}

type customPaymentReq struct {
	UserID         string          `json:"user_id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	SingleUseToken string          `json:"single_use_token"`
}

type customPaymentResp struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	TransactionAt   time.Time       `json:"transaction_at"`
	ReferenceNumber string          `json:"reference_number"`
}

// CreateCustomPayment charges an arbitrary tax-exempt amount against a
// user. Staff only; the target user defaults to the requester.
func (h *Handler) CreateCustomPayment(c echo.Context) error {
	var req customPaymentReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || !req.Price.IsPositive() {
		return echo.NewHTTPError(http.StatusBadRequest, "name and a positive price are required")
	}

	userID := req.UserID
	if userID == "" {
		userID = UserID(c)
	}

	cp, err := h.customPayments.Create(c.Request().Context(), userID, req.Name, req.Price, req.SingleUseToken)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, customPaymentResp{
		ID:              cp.ID,
		UserID:          cp.UserID,
		Name:            cp.Name,
		Price:           cp.Price,
		TransactionAt:   cp.TransactionAt,
		ReferenceNumber: cp.ReferenceNumber,
	})
}
