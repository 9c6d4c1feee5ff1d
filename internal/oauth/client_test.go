package oauth

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/pagekeep/oauth-login/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{
	AuthURL:      "https://provider.example/authorize",
	TokenURL:     "https://provider.example/token",
	UserInfoURL:  "https://provider.example/userinfo",
	ClientID:     "client-1",
	ClientSecret: "secret-1",
	RedirectURI:  "https://wiki.example/login",
	Scope:        "openid profile email",
}

type fakeTransport struct {
	body []byte
	err  error

	gotMethod  string
	gotURL     string
	gotParams  url.Values
	gotHeaders map[string]string
}

func (f *fakeTransport) Request(_ context.Context, method, rawURL string, params url.Values, headers map[string]string) ([]byte, error) {
	f.gotMethod = method
	f.gotURL = rawURL
	f.gotParams = params
	f.gotHeaders = headers
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func TestAuthorizationURLParameters(t *testing.T) {
	client := NewClient(testConfig, &fakeTransport{})

	raw, err := client.AuthorizationURL("state-abc")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "provider.example", u.Host)
	assert.Equal(t, "/authorize", u.Path)

	q := u.Query()
	assert.Len(t, q, 5)
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "https://wiki.example/login", q.Get("redirect_uri"))
	assert.Equal(t, "openid profile email", q.Get("scope"))
	assert.Equal(t, "state-abc", q.Get("state"))
}

func TestExchangeSuccess(t *testing.T) {
	ft := &fakeTransport{body: []byte(`{"access_token":"tok123","token_type":"Bearer"}`)}
	client := NewClient(testConfig, ft)

	token, err := client.Exchange(context.Background(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, "tok123", token.AccessToken())

	assert.Equal(t, http.MethodPost, ft.gotMethod)
	assert.Equal(t, testConfig.TokenURL, ft.gotURL)
	assert.Equal(t, "authorization_code", ft.gotParams.Get("grant_type"))
	assert.Equal(t, "code-1", ft.gotParams.Get("code"))
	assert.Equal(t, "client-1", ft.gotParams.Get("client_id"))
	assert.Equal(t, "secret-1", ft.gotParams.Get("client_secret"))
	assert.Equal(t, "https://wiki.example/login", ft.gotParams.Get("redirect_uri"))
	assert.Equal(t, "application/json", ft.gotHeaders["Accept"])
}

func TestExchangeMissingAccessToken(t *testing.T) {
	client := NewClient(testConfig, &fakeTransport{body: []byte(`{"error":"invalid_grant"}`)})

	_, err := client.Exchange(context.Background(), "code-1")
	assert.ErrorIs(t, err, ErrTokenExchange)
}

func TestExchangeEmptyAccessToken(t *testing.T) {
	client := NewClient(testConfig, &fakeTransport{body: []byte(`{"access_token":""}`)})

	_, err := client.Exchange(context.Background(), "code-1")
	assert.ErrorIs(t, err, ErrTokenExchange)
}

func TestExchangeNotAnObject(t *testing.T) {
	client := NewClient(testConfig, &fakeTransport{body: []byte(`"not an object"`)})

	_, err := client.Exchange(context.Background(), "code-1")
	assert.ErrorIs(t, err, ErrTokenExchange)
}

func TestExchangeTransportFailure(t *testing.T) {
	cause := &transport.StatusError{Status: http.StatusServiceUnavailable}
	client := NewClient(testConfig, &fakeTransport{err: cause})

	_, err := client.Exchange(context.Background(), "code-1")
	assert.ErrorIs(t, err, transport.ErrTransport)
	assert.NotErrorIs(t, err, ErrTokenExchange)
}

func TestFetchUserInfoSuccess(t *testing.T) {
	ft := &fakeTransport{body: []byte(`{"sub":"abc","email":"a@b.org"}`)}
	client := NewClient(testConfig, ft)

	profile, err := client.FetchUserInfo(context.Background(), "tok123")
	require.NoError(t, err)
	assert.Equal(t, "abc", profile.String("sub"))
	assert.Equal(t, "a@b.org", profile.String("email"))

	assert.Equal(t, http.MethodGet, ft.gotMethod)
	assert.Equal(t, testConfig.UserInfoURL, ft.gotURL)
	assert.Equal(t, "Bearer tok123", ft.gotHeaders["Authorization"])
}

func TestFetchUserInfoNotAnObject(t *testing.T) {
	for _, body := range []string{`[1,2,3]`, `null`, `not json`} {
		client := NewClient(testConfig, &fakeTransport{body: []byte(body)})
		_, err := client.FetchUserInfo(context.Background(), "tok123")
		assert.ErrorIs(t, err, ErrProfileFetch, "body %q", body)
	}
}

func TestFetchUserInfoTransportFailure(t *testing.T) {
	cause := &transport.StatusError{Status: http.StatusUnauthorized}
	client := NewClient(testConfig, &fakeTransport{err: cause})

	_, err := client.FetchUserInfo(context.Background(), "tok123")
	assert.ErrorIs(t, err, transport.ErrTransport)
}
