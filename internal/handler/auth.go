package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/volna/booking-api/internal/domain/auth"
)

const userIDContextKey = "booking.user_id"

// UserID returns the authenticated user's ID from the request context. Empty
// on unauthenticated routes.
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDContextKey).(string)
	return id
}

// Authenticator resolves "Authorization: Token <key>" headers to users via
// HMAC-SHA256 hashed API tokens.
type Authenticator struct {
	tokens auth.Repository
	pepper []byte
}

// NewAuthenticator creates an Authenticator with the given token repository
// and HMAC pepper.
func NewAuthenticator(tokens auth.Repository, pepper []byte) *Authenticator {
	return &Authenticator{
		tokens: tokens,
		pepper: pepper,
	}
}

// Middleware authenticates the request by computing the HMAC-SHA256 of the
// presented token, looking it up, and performing a constant-time comparison
// to prevent timing attacks. The resolved user ID is stored on the request
// context.
func (a *Authenticator) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Token ")
		if !ok || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}

		mac := hmac.New(sha256.New, a.pepper)
		mac.Write([]byte(token))
		hash := mac.Sum(nil)

		info, err := a.tokens.FindByHash(c.Request().Context(), hex.EncodeToString(hash))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}

		// Constant-time comparison guards against timing side-channels even
		// though the lookup already succeeded: the stored hash could differ
		// from what we computed if the repository returns a stale row.
		stored, err := hex.DecodeString(info.TokenHash)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		if subtle.ConstantTimeCompare(hash, stored) != 1 {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}

		c.Set(userIDContextKey, info.UserID)
		return next(c)
	}
}
