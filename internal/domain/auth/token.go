// Package auth defines the API token contract. Tokens are personal: each
// one maps to exactly one user and is stored only as an HMAC-SHA256 hash.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrInvalidToken is returned for unknown or malformed tokens.
var ErrInvalidToken = errors.New("invalid token")

// TokenInfo is the identity a validated API token resolves to.
type TokenInfo struct {
	TokenHash string
	UserID    string
	Name      string
}

// Repository provides lookup of API tokens by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*TokenInfo, error)
}
