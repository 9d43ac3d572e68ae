package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/volna/booking-api/internal/domain/catalog"
)

type productResp struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`

	DurationDays   int      `json:"duration_days,omitempty"`
	AcademicLevels []string `json:"academic_levels,omitempty"`

	TicketCount int `json:"ticket_count,omitempty"`

	WorkplaceID string     `json:"workplace_id,omitempty"`
	StartAt     *time.Time `json:"start_at,omitempty"`
	EndAt       *time.Time `json:"end_at,omitempty"`

	Seats int `json:"seats,omitempty"`

	ExclusiveMembershipIDs []string `json:"exclusive_membership_ids,omitempty"`
}

// ListProducts returns the available catalog.
func (h *Handler) ListProducts(c echo.Context) error {
	products, err := h.products.List(c.Request().Context())
	if err != nil {
		return mapError(err)
	}

	resp := make([]productResp, len(products))
	for i := range products {
		resp[i] = toProductResp(&products[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func toProductResp(p *catalog.Product) productResp {
	resp := productResp{
		ID:        p.ID,
		Kind:      string(p.Kind),
		Name:      p.Name,
		Price:     p.Price,
		Available: p.Available,

		DurationDays:   p.DurationDays,
		AcademicLevels: p.AcademicLevels,

		TicketCount: p.TicketCount,

		WorkplaceID: p.WorkplaceID,

		ExclusiveMembershipIDs: p.ExclusiveMembershipIDs,
	}
	if p.Kind == catalog.KindTimeslot && !p.StartAt.IsZero() {
		start, end := p.StartAt, p.EndAt
		resp.StartAt, resp.EndAt = &start, &end
	}
	if p.Kind.CapacityBound() {
		resp.Seats = p.Capacity()
	}
	return resp
}
