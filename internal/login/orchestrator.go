package login

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/pagekeep/oauth-login/internal/account"
	"github.com/pagekeep/oauth-login/internal/oauth"
	"github.com/pagekeep/oauth-login/internal/session"
	"go.uber.org/zap"
)

var (
	// ErrNotConfigured indicates required provider configuration is absent.
	ErrNotConfigured = errors.New("oauth login is not configured")
	// ErrAlreadyAuthenticated indicates the caller already has a login.
	ErrAlreadyAuthenticated = errors.New("session is already authenticated")
	// ErrStateMismatch indicates the callback state is absent from the
	// session or does not equal the presented value.
	ErrStateMismatch = errors.New("oauth state mismatch")
)

// StateSessionKey is where the anti-forgery state lives inside the session.
const StateSessionKey = "oauthlogin-state"

const stateTokenBytes = 16

// OAuthClient is the protocol surface the orchestrator drives.
type OAuthClient interface {
	AuthorizationURL(state string) (string, error)
	Exchange(ctx context.Context, code string) (oauth.TokenResponse, error)
	FetchUserInfo(ctx context.Context, accessToken string) (oauth.Profile, error)
}

// Resolver turns a provider profile into a local account.
type Resolver interface {
	Resolve(ctx context.Context, profile oauth.Profile) (*account.Account, error)
}

// Outcome is the result of one dispatched login request: either a redirect
// to the provider or a finalized account.
type Outcome struct {
	RedirectURL string
	Account     *account.Account
}

// Orchestrator owns the per-session login state machine.
type Orchestrator struct {
	client     OAuthClient
	resolver   Resolver
	configured bool
	logger     *zap.Logger
}

// New constructs an Orchestrator. configured is fixed at startup because
// configuration is immutable after load.
func New(client OAuthClient, resolver Resolver, configured bool, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		client:     client,
		resolver:   resolver,
		configured: configured,
		logger:     logger,
	}
}

// Handle dispatches a parsed request to the matching phase.
func (o *Orchestrator) Handle(ctx context.Context, sess session.Session, req Request) (*Outcome, error) {
	switch req := req.(type) {
	case CallbackRequest:
		acct, err := o.HandleCallback(ctx, sess, req.State, req.Code)
		if err != nil {
			return nil, err
		}
		return &Outcome{Account: acct}, nil
	default:
		redirect, err := o.Begin(ctx, sess)
		if err != nil {
			return nil, err
		}
		return &Outcome{RedirectURL: redirect}, nil
	}
}

// Begin mints a fresh anti-forgery state, binds it to the session, and
// returns the provider authorization URL the caller must redirect to.
// Each call invalidates any state from an earlier attempt.
func (o *Orchestrator) Begin(ctx context.Context, sess session.Session) (string, error) {
	if !o.configured {
		return "", ErrNotConfigured
	}
	if _, ok, err := sess.AuthenticatedUser(ctx); err != nil {
		return "", fmt.Errorf("read session: %w", err)
	} else if ok {
		return "", ErrAlreadyAuthenticated
	}

	state, err := newStateToken()
	if err != nil {
		return "", err
	}
	if err := sess.Set(ctx, StateSessionKey, state); err != nil {
		return "", fmt.Errorf("store state token: %w", err)
	}

	redirect, err := o.client.AuthorizationURL(state)
	if err != nil {
		return "", err
	}

	o.logger.Debug("login begun", zap.String("session_id", sess.ID()))
	return redirect, nil
}

// HandleCallback verifies the state against the session-bound value, runs
// the code exchange and profile fetch, and finalizes the session against the
// resolved account. Every failure is terminal for the attempt; the caller
// retries with Begin, which mints a new state.
func (o *Orchestrator) HandleCallback(ctx context.Context, sess session.Session, state, code string) (*account.Account, error) {
	expected, ok, err := sess.Get(ctx, StateSessionKey)
	if err != nil {
		return nil, fmt.Errorf("read state token: %w", err)
	}
	if !ok || expected == "" || expected != state {
		return nil, ErrStateMismatch
	}

	token, err := o.client.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	profile, err := o.client.FetchUserInfo(ctx, token.AccessToken())
	if err != nil {
		return nil, err
	}

	acct, err := o.resolver.Resolve(ctx, profile)
	if err != nil {
		return nil, err
	}

	if err := sess.SetAuthenticatedUser(ctx, acct); err != nil {
		return nil, fmt.Errorf("finalize session: %w", err)
	}

	o.logger.Info("login finalized",
		zap.String("session_id", sess.ID()),
		zap.String("account", acct.Name),
	)
	return acct, nil
}

func newStateToken() (string, error) {
	buf := make([]byte, stateTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random state token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
