package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/pagekeep/oauth-login/internal/account"
	"github.com/pagekeep/oauth-login/internal/audit"
	"github.com/pagekeep/oauth-login/internal/httpapi"
	authmiddleware "github.com/pagekeep/oauth-login/internal/httpapi/middleware"
	"github.com/pagekeep/oauth-login/internal/identity"
	"github.com/pagekeep/oauth-login/internal/login"
	"github.com/pagekeep/oauth-login/internal/metrics"
	"github.com/pagekeep/oauth-login/internal/oauth"
	"github.com/pagekeep/oauth-login/internal/session"
	"github.com/pagekeep/oauth-login/internal/token"
	"github.com/pagekeep/oauth-login/internal/transport"
	"go.uber.org/zap"
)

// SessionLoader hands out the per-request session.
type SessionLoader interface {
	Load(w http.ResponseWriter, r *http.Request) session.Session
}

// LoginHandler exposes the single login endpoint plus the session status
// signals the navigation UI reads.
type LoginHandler struct {
	orch       *login.Orchestrator
	sessions   SessionLoader
	tokens     *token.Service
	auditor    *audit.Logger
	logger     *zap.Logger
	configured bool
}

// NewLoginHandler constructs a handler.
func NewLoginHandler(orch *login.Orchestrator, sessions SessionLoader, tokens *token.Service, auditor *audit.Logger, configured bool, logger *zap.Logger) *LoginHandler {
	return &LoginHandler{
		orch:       orch,
		sessions:   sessions,
		tokens:     tokens,
		auditor:    auditor,
		logger:     logger,
		configured: configured,
	}
}

// Login serves both observable modes of the endpoint: without state and code
// it begins a login and redirects to the provider; with both it processes
// the provider callback.
func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Load(w, r)
	query := r.URL.Query()

	req := login.ParseRequest(query.Get("state"), query.Get("code"))
	if _, isCallback := req.(login.CallbackRequest); !isCallback && (query.Get("state") != "" || query.Get("code") != "") {
		h.logger.Warn("partial callback parameters, restarting login",
			zap.String("session_id", sess.ID()))
	}

	outcome, err := h.orch.Handle(r.Context(), sess, req)
	if err != nil {
		metrics.RecordLogin(metrics.OutcomeRejected)
		h.auditor.Record(r.Context(), audit.Entry{
			Action:    "login.rejected",
			Detail:    map[string]any{"reason": errorCode(err)},
			IPAddress: httpapi.ClientIP(r),
			UserAgent: httpapi.UserAgent(r),
		})
		h.handleError(w, r, err)
		return
	}

	if outcome.RedirectURL != "" {
		metrics.RecordLogin(metrics.OutcomeRedirected)
		h.auditor.Record(r.Context(), audit.Entry{
			Action:    "login.begin",
			IPAddress: httpapi.ClientIP(r),
			UserAgent: httpapi.UserAgent(r),
		})
		http.Redirect(w, r, outcome.RedirectURL, http.StatusFound)
		return
	}

	accessToken, expiresAt, err := h.tokens.Mint(outcome.Account)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	metrics.RecordLogin(metrics.OutcomeAuthenticated)
	h.auditor.Record(r.Context(), audit.Entry{
		AccountID: &outcome.Account.ID,
		Action:    "login.success",
		Detail:    map[string]any{"account": outcome.Account.Name},
		IPAddress: httpapi.ClientIP(r),
		UserAgent: httpapi.UserAgent(r),
	})

	httpapi.JSON(w, http.StatusOK, map[string]any{
		"status":       "authenticated",
		"account":      accountView(outcome.Account),
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   int(time.Until(expiresAt).Seconds()),
	})
}

// Session reports the signals the navigation hook reads: whether a login can
// be offered at all and whether the caller already has one.
func (h *LoginHandler) Session(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Load(w, r)

	user, ok, err := sess.AuthenticatedUser(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	payload := map[string]any{
		"configured":    h.configured,
		"authenticated": ok,
	}
	if ok {
		payload["account"] = map[string]any{
			"id":   user.ID,
			"name": user.Name,
		}
	}
	httpapi.JSON(w, http.StatusOK, payload)
}

// Whoami returns the claims behind a bearer token.
func (h *LoginHandler) Whoami(w http.ResponseWriter, r *http.Request) {
	claims, ok := authmiddleware.ClaimsFromContext(r.Context())
	if !ok {
		httpapi.Error(w, http.StatusUnauthorized, "unauthorized", "missing auth context", nil)
		return
	}
	httpapi.JSON(w, http.StatusOK, map[string]any{
		"id":    claims.Subject,
		"name":  claims.Name,
		"email": claims.Email,
	})
}

func (h *LoginHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)
	if status == http.StatusInternalServerError {
		reqID := middleware.GetReqID(r.Context())
		h.logger.Error("login handler error", zap.String("request_id", reqID), zap.Error(err))
		httpapi.Error(w, status, code, message, map[string]any{"request_id": reqID})
		return
	}
	httpapi.Error(w, status, code, message, nil)
}

// classify maps the closed set of login error kinds onto HTTP responses.
// Matching is exact via errors.Is; unknown errors stay internal.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, login.ErrNotConfigured):
		return http.StatusServiceUnavailable, "not_configured", "oauth login is not configured"
	case errors.Is(err, login.ErrAlreadyAuthenticated):
		return http.StatusConflict, "already_authenticated", "session is already authenticated"
	case errors.Is(err, login.ErrStateMismatch):
		return http.StatusForbidden, "state_mismatch", "login state did not match, please retry"
	case errors.Is(err, oauth.ErrTokenExchange):
		return http.StatusBadGateway, "token_exchange_failed", "provider token exchange failed"
	case errors.Is(err, oauth.ErrProfileFetch):
		return http.StatusBadGateway, "profile_fetch_failed", "provider profile fetch failed"
	case errors.Is(err, transport.ErrTransport):
		return http.StatusBadGateway, "transport_error", "provider request failed"
	case errors.Is(err, identity.ErrDomainRequired):
		return http.StatusForbidden, "email_required", "an email address is required to log in"
	case errors.Is(err, identity.ErrDomainNotAllowed):
		return http.StatusForbidden, "email_domain_not_allowed", "email domain is not allowed"
	case errors.Is(err, identity.ErrMissingIdentifier):
		return http.StatusUnprocessableEntity, "missing_identifier", "profile has no usable identifier"
	case errors.Is(err, identity.ErrInvalidUsername):
		return http.StatusUnprocessableEntity, "invalid_username", "derived username is not valid"
	case errors.Is(err, identity.ErrAutoCreateDisabled):
		return http.StatusForbidden, "autocreation_disabled", "no matching account and auto-creation is disabled"
	default:
		return http.StatusInternalServerError, "server_error", "internal server error"
	}
}

func errorCode(err error) string {
	_, code, _ := classify(err)
	return code
}

func accountView(acct *account.Account) map[string]any {
	if acct == nil {
		return nil
	}
	view := map[string]any{
		"id":         acct.ID,
		"name":       acct.Name,
		"created_at": acct.CreatedAt,
	}
	if acct.Email != "" {
		view["email"] = acct.Email
		view["email_confirmed"] = acct.EmailConfirmed
	}
	if acct.DisplayName != "" {
		view["display_name"] = acct.DisplayName
	}
	return view
}
