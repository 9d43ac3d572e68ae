package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/volna/booking-api/internal/domain/payment"
)

type cardResp struct {
	PaymentToken string `json:"payment_token"`
	LastDigits   string `json:"last_digits"`
	CardType     string `json:"card_type"`
	ExpiryMonth  int    `json:"expiry_month"`
	ExpiryYear   int    `json:"expiry_year"`
}

type profileResp struct {
	ExternalID string     `json:"external_id"`
	CreatedAt  time.Time  `json:"created_at"`
	Cards      []cardResp `json:"cards"`
}

// GetPaymentProfile returns the user's vault profile together with the
// cards stored on it. Card data comes from the gateway, never from local
// storage.
func (h *Handler) GetPaymentProfile(c echo.Context) error {
	ctx := c.Request().Context()

	profile, err := h.profiles.GetByUser(ctx, UserID(c))
	if err != nil {
		return mapError(err)
	}

	cards, err := h.gateway.ListCards(ctx, profile.ExternalID)
	if err != nil {
		return mapError(err)
	}

	resp := profileResp{
		ExternalID: profile.ExternalID,
		CreatedAt:  profile.CreatedAt,
		Cards:      make([]cardResp, len(cards)),
	}
	for i, card := range cards {
		resp.Cards[i] = cardResp{
			PaymentToken: card.PaymentToken,
			LastDigits:   card.LastDigits,
			CardType:     payment.CardTypeName(card.CardType),
			ExpiryMonth:  card.ExpiryMonth,
			ExpiryYear:   card.ExpiryYear,
		}
	}
	return c.JSON(http.StatusOK, resp)
}
