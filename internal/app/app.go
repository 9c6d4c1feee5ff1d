package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pagekeep/oauth-login/internal/account"
	"github.com/pagekeep/oauth-login/internal/audit"
	"github.com/pagekeep/oauth-login/internal/cache"
	"github.com/pagekeep/oauth-login/internal/config"
	"github.com/pagekeep/oauth-login/internal/database"
	"github.com/pagekeep/oauth-login/internal/httpapi"
	"github.com/pagekeep/oauth-login/internal/httpapi/handlers"
	httpmiddleware "github.com/pagekeep/oauth-login/internal/httpapi/middleware"
	"github.com/pagekeep/oauth-login/internal/identity"
	"github.com/pagekeep/oauth-login/internal/login"
	"github.com/pagekeep/oauth-login/internal/oauth"
	"github.com/pagekeep/oauth-login/internal/session"
	"github.com/pagekeep/oauth-login/internal/token"
	"github.com/pagekeep/oauth-login/internal/transport"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App wires core dependencies and exposes server lifecycle controls.
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	pool       *pgxpool.Pool
	redis      *redis.Client
	httpServer *http.Server
}

// New constructs the application.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.RunSchema {
		if err := database.EnsureSchema(ctx, pool); err != nil {
			return nil, err
		}
	}

	redisClient, err := cache.New(cfg.Redis)
	if err != nil {
		return nil, err
	}

	tokenSvc, err := token.NewService(cfg.Token)
	if err != nil {
		return nil, err
	}

	if !cfg.Provider.Configured() {
		logger.Warn("oauth provider is not fully configured, logins will be refused")
	}

	oauthClient := oauth.NewClient(oauth.Config{
		AuthURL:      cfg.Provider.AuthURL,
		TokenURL:     cfg.Provider.TokenURL,
		UserInfoURL:  cfg.Provider.UserInfoURL,
		ClientID:     cfg.Provider.ClientID,
		ClientSecret: cfg.Provider.ClientSecret,
		RedirectURI:  cfg.Provider.RedirectURI,
		Scope:        cfg.Provider.Scope,
	}, transport.NewHTTP())

	accountStore := account.NewPostgres(pool)
	resolver := identity.NewResolver(accountStore, cfg.Provider.AllowedDomains, cfg.Provider.AutoCreate, logger)
	orchestrator := login.New(oauthClient, resolver, cfg.Provider.Configured(), logger)

	sessionManager := session.NewManager(redisClient, cfg.Redis.Namespace, cfg.Session)
	auditor := audit.New(pool, logger)
	loginHandler := handlers.NewLoginHandler(orchestrator, sessionManager, tokenSvc, auditor, cfg.Provider.Configured(), logger)
	authMiddleware := httpmiddleware.NewAuth(tokenSvc)

	router := httpapi.NewRouter(httpapi.RouterDeps{
		HealthHandler:      handlers.Health,
		LoginHandler:       loginHandler.Login,
		SessionHandler:     loginHandler.Session,
		WhoamiHandler:      loginHandler.Whoami,
		RequireAuthHandler: authMiddleware.RequireAuth,
		MetricsHandler:     promhttp.Handler(),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		redis:      redisClient,
		httpServer: server,
	}, nil
}

// Run starts the HTTP server.
func (a *App) Run() error {
	a.logger.Info("starting HTTP server", zap.String("addr", a.httpServer.Addr))
	return a.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server and closes resources.
func (a *App) Shutdown(ctx context.Context) error {
	shutdownErr := a.httpServer.Shutdown(ctx)

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("failed to close redis client", zap.Error(err))
		if shutdownErr == nil {
			shutdownErr = err
		}
	}
	return shutdownErr
}
