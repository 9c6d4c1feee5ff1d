package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pagekeep/oauth-login/internal/account"
	"github.com/pagekeep/oauth-login/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	fieldUserID   = "user_id"
	fieldUserName = "user_name"
)

// Manager hands out Redis-backed sessions keyed by a browser cookie.
type Manager struct {
	client    *redis.Client
	namespace string
	cfg       config.SessionConfig
}

// NewManager constructs a Manager.
func NewManager(client *redis.Client, namespace string, cfg config.SessionConfig) *Manager {
	return &Manager{client: client, namespace: namespace, cfg: cfg}
}

// Load returns the session for the request, minting a new identifier and
// setting the cookie when the caller has none.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) Session {
	id := ""
	if cookie, err := r.Cookie(m.cfg.CookieName); err == nil && cookie.Value != "" {
		if parsed, err := uuid.Parse(cookie.Value); err == nil {
			id = parsed.String()
		}
	}
	if id == "" {
		id = uuid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     m.cfg.CookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(m.cfg.TTL.Seconds()),
			HttpOnly: true,
			Secure:   m.cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return &redisSession{
		id:     id,
		key:    fmt.Sprintf("%s:sess:%s", m.namespace, id),
		client: m.client,
		ttl:    m.cfg.TTL,
	}
}

type redisSession struct {
	id     string
	key    string
	client *redis.Client
	ttl    time.Duration
}

func (s *redisSession) ID() string { return s.id }

func (s *redisSession) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.HGet(ctx, s.key, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("session get: %w", err)
	}
	return value, true, nil
}

func (s *redisSession) Set(ctx context.Context, key, value string) error {
	if err := s.client.HSet(ctx, s.key, key, value).Err(); err != nil {
		return fmt.Errorf("session set: %w", err)
	}
	if err := s.client.Expire(ctx, s.key, s.ttl).Err(); err != nil {
		return fmt.Errorf("session expire: %w", err)
	}
	return nil
}

func (s *redisSession) SetAuthenticatedUser(ctx context.Context, acct *account.Account) error {
	err := s.client.HSet(ctx, s.key,
		fieldUserID, acct.ID.String(),
		fieldUserName, acct.Name,
	).Err()
	if err != nil {
		return fmt.Errorf("session bind user: %w", err)
	}
	if err := s.client.Expire(ctx, s.key, s.ttl).Err(); err != nil {
		return fmt.Errorf("session expire: %w", err)
	}
	return nil
}

func (s *redisSession) AuthenticatedUser(ctx context.Context) (User, bool, error) {
	values, err := s.client.HMGet(ctx, s.key, fieldUserID, fieldUserName).Result()
	if err != nil {
		return User{}, false, fmt.Errorf("session read user: %w", err)
	}
	rawID, _ := values[0].(string)
	if rawID == "" {
		return User{}, false, nil
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return User{}, false, nil
	}
	name, _ := values[1].(string)
	return User{ID: id, Name: name}, true, nil
}
