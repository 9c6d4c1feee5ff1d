package account

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists accounts in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgresStore.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// FindByName looks an account up by exact name match.
func (s *PostgresStore) FindByName(ctx context.Context, name string) (*Account, error) {
	const query = `
		SELECT id, name, email, email_confirmed, display_name, created_at
		FROM accounts
		WHERE name = $1`

	var (
		acct    Account
		email   *string
		display *string
	)
	err := s.pool.QueryRow(ctx, query, name).Scan(
		&acct.ID, &acct.Name, &email, &acct.EmailConfirmed, &display, &acct.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query account: %w", err)
	}
	if email != nil {
		acct.Email = *email
	}
	if display != nil {
		acct.DisplayName = *display
	}
	return &acct, nil
}

// Create inserts a new account.
func (s *PostgresStore) Create(ctx context.Context, in CreateInput) (*Account, error) {
	const query = `
		INSERT INTO accounts (id, name, email, email_confirmed, display_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	acct := &Account{
		ID:             uuid.New(),
		Name:           in.Name,
		Email:          in.Email,
		EmailConfirmed: in.EmailConfirmed,
		DisplayName:    in.DisplayName,
	}

	var email, display *string
	if in.Email != "" {
		email = &in.Email
	}
	if in.DisplayName != "" {
		display = &in.DisplayName
	}

	err := s.pool.QueryRow(ctx, query, acct.ID, acct.Name, email, acct.EmailConfirmed, display).
		Scan(&acct.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return acct, nil
}

// IssueAuthToken mints a fresh opaque token and stores its hash. Only the
// hash is persisted; the plain value never leaves this store.
func (s *PostgresStore) IssueAuthToken(ctx context.Context, acct *Account) error {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("random auth token: %w", err)
	}
	plain := base64.RawURLEncoding.EncodeToString(buf)
	sum := sha256.Sum256([]byte(plain))

	const query = `UPDATE accounts SET auth_token_hash = $1, updated_at = now() WHERE id = $2`
	if _, err := s.pool.Exec(ctx, query, hex.EncodeToString(sum[:]), acct.ID); err != nil {
		return fmt.Errorf("store auth token: %w", err)
	}
	return nil
}
