package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/pagekeep/oauth-login/internal/account"
)

// User identifies the account a session was finalized against.
type User struct {
	ID   uuid.UUID
	Name string
}

// Session is the per-caller state the login flow reads and writes. It must
// persist values across the redirect round-trip to the provider.
type Session interface {
	// ID returns the opaque session identifier.
	ID() string
	// Get reads a value, reporting absence separately from store failures.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set writes a value.
	Set(ctx context.Context, key, value string) error
	// SetAuthenticatedUser finalizes the session against an account.
	SetAuthenticatedUser(ctx context.Context, acct *account.Account) error
	// AuthenticatedUser returns the bound account identity, if any.
	AuthenticatedUser(ctx context.Context) (User, bool, error)
}
