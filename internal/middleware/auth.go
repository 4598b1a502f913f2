package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/theponti/rocco-api/internal/auth"
	"github.com/theponti/rocco-api/internal/store"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "rocco_session"

// RequireSession resolves a principal for the request, trying the cookie
// session first and falling back to a bearer token. The bearer path fetches
// the user row and materializes a session so later requests skip the
// verification. The resolver never creates users.
func RequireSession(sessions *store.SessionStore, users *store.UserStore, signer *auth.Signer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, ok := resolveCookieSession(w, r, sessions, users, logger); ok {
				next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
				return
			}

			p, ok := resolveBearerToken(w, r, sessions, users, signer, logger)
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

func resolveCookieSession(w http.ResponseWriter, r *http.Request, sessions *store.SessionStore, users *store.UserStore, logger *slog.Logger) (auth.Principal, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return auth.Principal{}, false
	}

	sess, err := sessions.GetByToken(r.Context(), cookie.Value)
	if err != nil {
		logger.Error("session lookup", "error", err)
		return auth.Principal{}, false
	}
	if sess == nil {
		return auth.Principal{}, false
	}

	// Backfill identity fields for sessions materialized before they were
	// known (bearer-derived sessions start without email/name).
	if sess.Email == "" || sess.Name == "" {
		user, err := users.GetByID(r.Context(), sess.UserID)
		if err != nil {
			logger.Error("session backfill lookup", "error", err)
		} else if user != nil {
			if err := sessions.UpdateIdentity(r.Context(), sess.ID, user.Email, user.Name); err != nil {
				logger.Error("session backfill update", "error", err)
			}
			sess.Email = user.Email
			sess.Name = user.Name
		}
	}

	return auth.Principal{
		UserID:    sess.UserID,
		Email:     sess.Email,
		Name:      sess.Name,
		IsAdmin:   sess.IsAdmin,
		Roles:     sess.Roles,
		SessionID: sess.ID,
	}, true
}

func resolveBearerToken(w http.ResponseWriter, r *http.Request, sessions *store.SessionStore, users *store.UserStore, signer *auth.Signer, logger *slog.Logger) (auth.Principal, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return auth.Principal{}, false
	}

	claims, err := signer.Verify(token)
	if err != nil {
		logger.Error("verify bearer token", "error", err)
		return auth.Principal{}, false
	}
	if claims.UserID == "" {
		return auth.Principal{}, false
	}

	user, err := users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		logger.Error("bearer user lookup", "error", err)
		return auth.Principal{}, false
	}
	if user == nil {
		return auth.Principal{}, false
	}

	p := auth.Principal{
		UserID:  user.ID,
		Email:   user.Email,
		Name:    user.Name,
		IsAdmin: user.IsAdmin,
		Roles:   nil,
	}

	sess, err := sessions.Create(r.Context(), p.UserID, p.Email, p.Name, p.IsAdmin, p.Roles)
	if err != nil {
		logger.Error("create session from bearer token", "error", err)
	} else {
		p.SessionID = sess.ID
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookieName,
			Value:    sess.Token,
			Path:     "/",
			MaxAge:   90 * 24 * 60 * 60,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   r.TLS != nil,
		})
	}

	return p, true
}

// RequireAdmin checks that the resolved principal is an admin: 401 without a
// principal, 403 without the flag.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !p.IsAdmin {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole checks membership in the principal's role set. No I/O: this is
// a pure predicate over the already-resolved principal.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.FromContext(r.Context())
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if !p.HasRole(role) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
