package login

import (
	"context"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/pagekeep/oauth-login/internal/account"
	"github.com/pagekeep/oauth-login/internal/oauth"
	"github.com/pagekeep/oauth-login/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memorySession struct {
	id     string
	values map[string]string
	user   *session.User
}

func newMemorySession() *memorySession {
	return &memorySession{id: uuid.New().String(), values: map[string]string{}}
}

func (m *memorySession) ID() string { return m.id }

func (m *memorySession) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *memorySession) Set(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func (m *memorySession) SetAuthenticatedUser(_ context.Context, acct *account.Account) error {
	m.user = &session.User{ID: acct.ID, Name: acct.Name}
	return nil
}

func (m *memorySession) AuthenticatedUser(_ context.Context) (session.User, bool, error) {
	if m.user == nil {
		return session.User{}, false, nil
	}
	return *m.user, true, nil
}

type fakeClient struct {
	token   oauth.TokenResponse
	profile oauth.Profile

	exchangeErr error
	fetchErr    error

	exchangedCode    string
	fetchedToken     string
	exchangeCalls    int
	fetchCalls       int
	authorizationURL string
}

func (f *fakeClient) AuthorizationURL(state string) (string, error) {
	f.authorizationURL = "https://provider.example/authorize?state=" + url.QueryEscape(state)
	return f.authorizationURL, nil
}

func (f *fakeClient) Exchange(_ context.Context, code string) (oauth.TokenResponse, error) {
	f.exchangeCalls++
	f.exchangedCode = code
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.token, nil
}

func (f *fakeClient) FetchUserInfo(_ context.Context, accessToken string) (oauth.Profile, error) {
	f.fetchCalls++
	f.fetchedToken = accessToken
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.profile, nil
}

type fakeResolver struct {
	acct *account.Account
	err  error

	gotProfile oauth.Profile
	calls      int
}

func (f *fakeResolver) Resolve(_ context.Context, profile oauth.Profile) (*account.Account, error) {
	f.calls++
	f.gotProfile = profile
	if f.err != nil {
		return nil, f.err
	}
	return f.acct, nil
}

func TestParseRequest(t *testing.T) {
	assert.Equal(t, BeginRequest{}, ParseRequest("", ""))
	assert.Equal(t, BeginRequest{}, ParseRequest("s", ""))
	assert.Equal(t, BeginRequest{}, ParseRequest("", "c"))
	assert.Equal(t, CallbackRequest{State: "s", Code: "c"}, ParseRequest("s", "c"))
}

func TestBeginNotConfigured(t *testing.T) {
	orch := New(&fakeClient{}, &fakeResolver{}, false, zap.NewNop())

	_, err := orch.Begin(context.Background(), newMemorySession())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestBeginAlreadyAuthenticated(t *testing.T) {
	orch := New(&fakeClient{}, &fakeResolver{}, true, zap.NewNop())
	sess := newMemorySession()
	sess.user = &session.User{ID: uuid.New(), Name: "alice"}

	_, err := orch.Begin(context.Background(), sess)
	assert.ErrorIs(t, err, ErrAlreadyAuthenticated)
}

func TestBeginStoresFreshState(t *testing.T) {
	client := &fakeClient{}
	orch := New(client, &fakeResolver{}, true, zap.NewNop())
	sess := newMemorySession()

	redirect, err := orch.Begin(context.Background(), sess)
	require.NoError(t, err)

	state := sess.values[StateSessionKey]
	require.Len(t, state, 32) // 16 random bytes, hex-encoded
	assert.Equal(t, client.authorizationURL, redirect)
	assert.Contains(t, redirect, "state="+state)

	// a second begin mints a different state, invalidating the first
	_, err = orch.Begin(context.Background(), sess)
	require.NoError(t, err)
	assert.NotEqual(t, state, sess.values[StateSessionKey])
}

func TestCallbackStateRoundTrip(t *testing.T) {
	acct := &account.Account{ID: uuid.New(), Name: "alice"}
	client := &fakeClient{
		token:   oauth.TokenResponse{"access_token": "tok123"},
		profile: oauth.Profile{"preferred_username": "alice"},
	}
	resolver := &fakeResolver{acct: acct}
	orch := New(client, resolver, true, zap.NewNop())
	sess := newMemorySession()

	_, err := orch.Begin(context.Background(), sess)
	require.NoError(t, err)
	state := sess.values[StateSessionKey]

	got, err := orch.HandleCallback(context.Background(), sess, state, "code-1")
	require.NoError(t, err)
	assert.Same(t, acct, got)

	assert.Equal(t, "code-1", client.exchangedCode)
	assert.Equal(t, "tok123", client.fetchedToken)
	assert.Equal(t, client.profile, resolver.gotProfile)

	require.NotNil(t, sess.user)
	assert.Equal(t, "alice", sess.user.Name)
}

func TestCallbackStateMutationRejected(t *testing.T) {
	client := &fakeClient{token: oauth.TokenResponse{"access_token": "tok123"}}
	orch := New(client, &fakeResolver{}, true, zap.NewNop())
	sess := newMemorySession()

	_, err := orch.Begin(context.Background(), sess)
	require.NoError(t, err)
	state := sess.values[StateSessionKey]

	mutated := "0" + state[1:]
	if mutated == state {
		mutated = "1" + state[1:]
	}

	_, err = orch.HandleCallback(context.Background(), sess, mutated, "code-1")
	assert.ErrorIs(t, err, ErrStateMismatch)
	// no network calls on a state mismatch
	assert.Zero(t, client.exchangeCalls)
	assert.Zero(t, client.fetchCalls)
}

func TestCallbackWithoutSessionState(t *testing.T) {
	client := &fakeClient{}
	orch := New(client, &fakeResolver{}, true, zap.NewNop())

	_, err := orch.HandleCallback(context.Background(), newMemorySession(), "whatever", "code-1")
	assert.ErrorIs(t, err, ErrStateMismatch)
	assert.Zero(t, client.exchangeCalls)
}

func TestCallbackExchangeFailureIsTerminal(t *testing.T) {
	client := &fakeClient{exchangeErr: oauth.ErrTokenExchange}
	resolver := &fakeResolver{}
	orch := New(client, resolver, true, zap.NewNop())
	sess := newMemorySession()

	_, err := orch.Begin(context.Background(), sess)
	require.NoError(t, err)

	_, err = orch.HandleCallback(context.Background(), sess, sess.values[StateSessionKey], "code-1")
	assert.ErrorIs(t, err, oauth.ErrTokenExchange)
	assert.Zero(t, client.fetchCalls)
	assert.Zero(t, resolver.calls)
	assert.Nil(t, sess.user)
}

func TestHandleDispatch(t *testing.T) {
	acct := &account.Account{ID: uuid.New(), Name: "alice"}
	client := &fakeClient{
		token:   oauth.TokenResponse{"access_token": "tok123"},
		profile: oauth.Profile{"preferred_username": "alice"},
	}
	orch := New(client, &fakeResolver{acct: acct}, true, zap.NewNop())
	sess := newMemorySession()

	outcome, err := orch.Handle(context.Background(), sess, BeginRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, outcome.RedirectURL)
	assert.Nil(t, outcome.Account)

	outcome, err = orch.Handle(context.Background(), sess, CallbackRequest{
		State: sess.values[StateSessionKey],
		Code:  "code-1",
	})
	require.NoError(t, err)
	assert.Empty(t, outcome.RedirectURL)
	assert.Same(t, acct, outcome.Account)
}
