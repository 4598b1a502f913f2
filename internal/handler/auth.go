package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/theponti/rocco-api/internal/analytics"
	"github.com/theponti/rocco-api/internal/auth"
	"github.com/theponti/rocco-api/internal/middleware"
	"github.com/theponti/rocco-api/internal/store"
)

type AuthHandler struct {
	service   *auth.Service
	users     *store.UserStore
	tokens    *store.TokenStore
	sessions  *store.SessionStore
	analytics *analytics.Client
	logger    *slog.Logger
}

func NewAuthHandler(
	service *auth.Service,
	us *store.UserStore,
	ts *store.TokenStore,
	ss *store.SessionStore,
	ac *analytics.Client,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		service:   service,
		users:     us,
		tokens:    ts,
		sessions:  ss,
		analytics: ac,
		logger:    logger,
	}
}

type userResponse struct {
	UserID  string   `json:"userId"`
	Name    string   `json:"name"`
	IsAdmin bool     `json:"isAdmin"`
	Roles   []string `json:"roles"`
}

type loginRequest struct {
	Email string `json:"email"`
}

// Login issues a short-lived login token for the email. The response never
// reveals whether the email was already registered.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	if err := h.service.IssueLoginToken(r.Context(), req.Email); err != nil {
		h.logger.Error("issue login token", "error", err)
		h.analytics.Track(r.Context(), analytics.AppUserID, analytics.EventRegisterFailure, map[string]any{
			"message": err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Could not create account"})
		return
	}

	h.analytics.Track(r.Context(), analytics.AppUserID, analytics.EventRegisterSuccess, nil)
	w.WriteHeader(http.StatusOK)
}

type authenticateRequest struct {
	Email      string `json:"email"`
	EmailToken string `json:"emailToken"`
}

// Authenticate redeems a login token for a bearer token and a cookie session.
func (h *AuthHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Email == "" || req.EmailToken == "" {
		writeError(w, http.StatusBadRequest, "email and emailToken are required")
		return
	}

	res, err := h.service.Exchange(r.Context(), req.Email, req.EmailToken)
	if err != nil {
		h.logger.Error("authenticate", "error", err)
		// A failed exchange must not leave a half-authenticated session.
		h.clearSession(w, r)

		switch {
		case errors.Is(err, auth.ErrTokenNotFound):
			h.trackValidationFailure(r, analytics.ReasonNotFound)
			http.Error(w, "Invalid token", http.StatusBadRequest)
		case errors.Is(err, auth.ErrTokenInvalid):
			h.trackValidationFailure(r, analytics.ReasonInvalid)
			w.WriteHeader(http.StatusUnauthorized)
		case errors.Is(err, auth.ErrTokenExpired):
			h.trackValidationFailure(r, analytics.ReasonExpired)
			http.Error(w, "Token expired", http.StatusUnauthorized)
		case errors.Is(err, auth.ErrEmailMismatch):
			h.trackValidationFailure(r, analytics.ReasonEmailMismatch)
			w.WriteHeader(http.StatusUnauthorized)
		case errors.Is(err, auth.ErrUserNotFound):
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	p := res.Principal
	sess, err := h.sessions.Create(r.Context(), p.UserID, p.Email, p.Name, p.IsAdmin, p.Roles)
	if err != nil {
		h.logger.Error("create session", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	setSessionCookie(w, r, sess.Token)

	h.analytics.Track(r.Context(), p.UserID, analytics.EventLoginSuccess, map[string]any{
		"isAdmin": p.IsAdmin,
	})

	w.Header().Set("Authorization", "Bearer "+res.AccessToken)
	writeJSON(w, http.StatusOK, map[string]any{
		"user": userResponse{
			UserID:  p.UserID,
			Name:    p.Name,
			IsAdmin: p.IsAdmin,
			Roles:   p.Roles,
		},
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w, r)
	if p, ok := auth.FromContext(r.Context()); ok {
		h.analytics.Track(r.Context(), p.UserID, analytics.EventLogout, nil)
	}
	w.WriteHeader(http.StatusOK)
}

// Me returns the authenticated user's record. A principal whose user row has
// vanished loses its session and gets a 401.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetByID(r.Context(), p.UserID)
	if err != nil {
		h.logger.Error("fetch current user", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if user == nil {
		h.clearSession(w, r)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// DeleteMe removes the authenticated user's account. Token rows restrict the
// user FK, so they go first; the remaining resources cascade.
func (h *AuthHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if err := h.tokens.DeleteByUserID(r.Context(), p.UserID); err != nil {
		h.logger.Error("delete user tokens", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if err := h.sessions.DeleteByUserID(r.Context(), p.UserID); err != nil {
		h.logger.Error("delete user sessions", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if err := h.users.Delete(r.Context(), p.UserID); err != nil {
		h.logger.Error("delete user", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	expireSessionCookie(w)
	w.WriteHeader(http.StatusOK)
}

func (h *AuthHandler) trackValidationFailure(r *http.Request, reason string) {
	h.analytics.Track(r.Context(), analytics.AppUserID, analytics.EventEmailTokenValidatedFail, map[string]any{
		"reason": reason,
	})
}

func (h *AuthHandler) clearSession(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if sess, err := h.sessions.GetByToken(r.Context(), cookie.Value); err == nil && sess != nil {
			if err := h.sessions.Delete(r.Context(), sess.ID); err != nil {
				h.logger.Error("delete session", "error", err)
			}
		}
	}
	expireSessionCookie(w)
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   90 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}

func expireSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
