package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no account matches the lookup.
var ErrNotFound = errors.New("account not found")

// Account is a local account, either pre-existing or created during login.
type Account struct {
	ID             uuid.UUID
	Name           string
	Email          string
	EmailConfirmed bool
	DisplayName    string
	CreatedAt      time.Time
}

// CreateInput carries the fields populated from a provider profile.
type CreateInput struct {
	Name           string
	Email          string
	EmailConfirmed bool
	DisplayName    string
}

// Store is the account persistence contract the resolver depends on.
type Store interface {
	// FindByName looks an account up by exact name match.
	FindByName(ctx context.Context, name string) (*Account, error)
	// Create inserts a new account.
	Create(ctx context.Context, in CreateInput) (*Account, error)
	// IssueAuthToken mints and persists a fresh authentication token.
	IssueAuthToken(ctx context.Context, acct *Account) error
}
