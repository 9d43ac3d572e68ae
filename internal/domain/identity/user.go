package identity

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when the requesting user does not exist.
var ErrNotFound = errors.New("user not found")

// User is the identity snapshot the order pipeline reads and conditionally
// mutates. Tickets, MembershipID and MembershipEnd are written back inside
// the same transaction that created the order.
type User struct {
	ID            string
	Email         string
	FirstName     string
	LastName      string
	IsStaff       bool
	AcademicLevel string
	MembershipID  string
	MembershipEnd time.Time
	Tickets       int
	Phone         string
	City          string
}

// FullName returns the display name used in notification payloads.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// HasActiveMembership reports whether the user holds a membership that has
// not yet expired at the given date.
func (u *User) HasActiveMembership(today time.Time) bool {
	return u.MembershipID != "" && u.MembershipEnd.After(today)
}

// Repository defines read access to users outside a checkout transaction.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}
