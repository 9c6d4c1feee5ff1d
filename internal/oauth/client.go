package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pagekeep/oauth-login/internal/transport"
)

var (
	// ErrTokenExchange indicates the token endpoint answer was unusable.
	ErrTokenExchange = errors.New("token exchange failed")
	// ErrProfileFetch indicates the user-info answer was unusable.
	ErrProfileFetch = errors.New("user info fetch failed")
)

// Config holds the provider endpoints and client credentials.
type Config struct {
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scope        string
}

// TokenResponse is the parsed key/value answer of the token endpoint.
type TokenResponse map[string]any

// AccessToken returns the access_token value, or "" when missing or not a string.
func (t TokenResponse) AccessToken() string {
	s, _ := t["access_token"].(string)
	return s
}

// Profile is the parsed key/value answer of the user-info endpoint. Fields
// beyond "is a JSON object" are provider-dependent and optional.
type Profile map[string]any

// String returns the value under key when it is a non-empty string.
func (p Profile) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Client implements the authorization-code grant against a single provider.
// It is pure protocol logic over the injected Transport.
type Client struct {
	cfg       Config
	transport transport.Transport
}

// NewClient constructs a Client.
func NewClient(cfg Config, t transport.Transport) *Client {
	return &Client{cfg: cfg, transport: t}
}

// AuthorizationURL composes the provider authorization URL for the given
// anti-forgery state. No network call is made.
func (c *Client) AuthorizationURL(state string) (string, error) {
	u, err := url.Parse(c.cfg.AuthURL)
	if err != nil {
		return "", fmt.Errorf("parse authorization url: %w", err)
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", c.cfg.RedirectURI)
	q.Set("scope", c.cfg.Scope)
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Exchange swaps the authorization code for a token response.
func (c *Client) Exchange(ctx context.Context, code string) (TokenResponse, error) {
	params := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {c.cfg.RedirectURI},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}

	body, err := c.transport.Request(ctx, http.MethodPost, c.cfg.TokenURL, params, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("token endpoint: %w", err)
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("%w: response is not a JSON object", ErrTokenExchange)
	}
	if token.AccessToken() == "" {
		return nil, fmt.Errorf("%w: access_token missing", ErrTokenExchange)
	}
	return token, nil
}

// FetchUserInfo retrieves the provider profile for the access token.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (Profile, error) {
	body, err := c.transport.Request(ctx, http.MethodGet, c.cfg.UserInfoURL, nil, map[string]string{
		"Accept":        "application/json",
		"Authorization": "Bearer " + accessToken,
	})
	if err != nil {
		return nil, fmt.Errorf("userinfo endpoint: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil || profile == nil {
		return nil, fmt.Errorf("%w: response is not a JSON object", ErrProfileFetch)
	}
	return profile, nil
}
