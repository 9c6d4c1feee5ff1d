package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config aggregates all runtime settings.
type Config struct {
	App      AppConfig      `envPrefix:"OAUTHLOGIN_"`
	HTTP     HTTPConfig     `envPrefix:"OAUTHLOGIN_HTTP_"`
	Database DatabaseConfig `envPrefix:"OAUTHLOGIN_DB_"`
	Redis    RedisConfig    `envPrefix:"OAUTHLOGIN_REDIS_"`
	Session  SessionConfig  `envPrefix:"OAUTHLOGIN_SESSION_"`
	Token    TokenConfig    `envPrefix:"OAUTHLOGIN_TOKEN_"`
	Provider ProviderConfig `envPrefix:"OAUTHLOGIN_PROVIDER_"`
}

type AppConfig struct {
	Environment string `env:"ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"oauth-login"`
}

type HTTPConfig struct {
	Host              string        `env:"HOST" envDefault:"0.0.0.0"`
	Port              int           `env:"PORT" envDefault:"4180"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"120s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"25s"`
}

type DatabaseConfig struct {
	URL          string        `env:"URL"`
	MaxConns     int32         `env:"MAX_CONNS" envDefault:"10"`
	ConnLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	RunSchema    bool          `env:"RUN_SCHEMA" envDefault:"true"`
}

type RedisConfig struct {
	Addr      string `env:"ADDR" envDefault:"127.0.0.1:6379"`
	Password  string `env:"PASSWORD"`
	DB        int    `env:"DB" envDefault:"0"`
	EnableTLS bool   `env:"ENABLE_TLS" envDefault:"false"`
	Namespace string `env:"NAMESPACE" envDefault:"oauthlogin"`
}

type SessionConfig struct {
	TTL          time.Duration `env:"TTL" envDefault:"24h"`
	CookieName   string        `env:"COOKIE_NAME" envDefault:"oauthlogin_session"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
}

type TokenConfig struct {
	Secret   string        `env:"SECRET"`
	Issuer   string        `env:"ISSUER" envDefault:"https://login.pagekeep.local"`
	Audience string        `env:"AUDIENCE" envDefault:"pagekeep"`
	TTL      time.Duration `env:"TTL" envDefault:"12h"`
}

// ProviderConfig describes the upstream OAuth 2.0 provider.
type ProviderConfig struct {
	AuthURL        string   `env:"AUTH_URL"`
	TokenURL       string   `env:"TOKEN_URL"`
	UserInfoURL    string   `env:"USERINFO_URL"`
	ClientID       string   `env:"CLIENT_ID"`
	ClientSecret   string   `env:"CLIENT_SECRET"`
	RedirectURI    string   `env:"REDIRECT_URI"`
	Scope          string   `env:"SCOPE" envDefault:"openid profile email"`
	AllowedDomains []string `env:"ALLOWED_DOMAINS" envSeparator:","`
	AutoCreate     bool     `env:"AUTO_CREATE" envDefault:"true"`
}

// Configured reports whether every value required to run a login flow is set.
// A partially configured provider refuses to begin a login rather than
// failing the process at startup.
func (p ProviderConfig) Configured() bool {
	return p.AuthURL != "" &&
		p.TokenURL != "" &&
		p.UserInfoURL != "" &&
		p.ClientID != "" &&
		p.ClientSecret != "" &&
		p.RedirectURI != ""
}

// Load parses environment variables into Config and performs validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("OAUTHLOGIN_DB_URL is required")
	}
	if cfg.Token.Secret == "" {
		return nil, fmt.Errorf("OAUTHLOGIN_TOKEN_SECRET is required")
	}

	return cfg, nil
}
