package handlers

import (
	"net/http"
	"time"

	"github.com/pagekeep/oauth-login/internal/httpapi"
)

// Health responds with basic service status.
func Health(w http.ResponseWriter, r *http.Request) {
	httpapi.JSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}
