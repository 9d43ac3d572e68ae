package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNoProfile is returned when a user has no stored payment profile.
var ErrNoProfile = errors.New("no payment profile")

// CustomerProfile maps a local user to an external vault profile. Card data
// is never stored locally; only the external identifiers are.
type CustomerProfile struct {
	UserID      string
	ExternalID  string
	ExternalURL string
	CreatedAt   time.Time
}

// ProfileRepository persists the user-to-vault mapping.
type ProfileRepository interface {
	GetByUser(ctx context.Context, userID string) (*CustomerProfile, error)
	Create(ctx context.Context, p *CustomerProfile) error
}
