package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDeps defines router construction dependencies.
type RouterDeps struct {
	HealthHandler      http.HandlerFunc
	LoginHandler       http.HandlerFunc
	SessionHandler     http.HandlerFunc
	WhoamiHandler      http.HandlerFunc
	RequireAuthHandler func(http.Handler) http.Handler
	MetricsHandler     http.Handler
}

// NewRouter wires HTTP routes.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if deps.HealthHandler != nil {
		r.Get("/healthz", deps.HealthHandler)
	}
	if deps.MetricsHandler != nil {
		r.Method("GET", "/metrics", deps.MetricsHandler)
	}

	r.Get("/login", deps.LoginHandler)
	r.Get("/session", deps.SessionHandler)

	if deps.WhoamiHandler != nil {
		if deps.RequireAuthHandler != nil {
			r.With(deps.RequireAuthHandler).Get("/whoami", deps.WhoamiHandler)
		} else {
			r.Get("/whoami", deps.WhoamiHandler)
		}
	}

	return r
}
