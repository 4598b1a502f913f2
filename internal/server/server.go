package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/theponti/rocco-api/internal/analytics"
	"github.com/theponti/rocco-api/internal/auth"
	"github.com/theponti/rocco-api/internal/backup"
	"github.com/theponti/rocco-api/internal/email"
	"github.com/theponti/rocco-api/internal/handler"
	"github.com/theponti/rocco-api/internal/middleware"
	"github.com/theponti/rocco-api/internal/store"
)

type Server struct {
	db           *sql.DB
	authH        *handler.AuthHandler
	listH        *handler.ListHandler
	ideaH        *handler.IdeaHandler
	bookmarkH    *handler.BookmarkHandler
	adminH       *handler.AdminHandler
	userStore    *store.UserStore
	tokenStore   *store.TokenStore
	sessionStore *store.SessionStore
	signer       *auth.Signer
	rateLimiter  *middleware.RateLimiter
	analytics    *analytics.Client
	logger       *slog.Logger
}

func New(db *sql.DB, signer *auth.Signer, emailClient *email.Client, analyticsClient *analytics.Client, backupCfg backup.Config, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db)
	tokenStore := store.NewTokenStore(db)
	sessionStore := store.NewSessionStore(db)
	listStore := store.NewListStore(db)
	ideaStore := store.NewIdeaStore(db)
	bookmarkStore := store.NewBookmarkStore(db)

	authSvc := auth.NewService(db, signer, emailClient, logger.With("component", "auth"))
	backupMgr := backup.NewManager(backupCfg, db, logger.With("component", "backup"))

	return &Server{
		db:           db,
		authH:        handler.NewAuthHandler(authSvc, userStore, tokenStore, sessionStore, analyticsClient, logger.With("component", "auth_handler")),
		listH:        handler.NewListHandler(listStore, analyticsClient, logger.With("component", "list")),
		ideaH:        handler.NewIdeaHandler(ideaStore, logger.With("component", "idea")),
		bookmarkH:    handler.NewBookmarkHandler(bookmarkStore, logger.With("component", "bookmark")),
		adminH:       handler.NewAdminHandler(userStore, backupMgr, logger.With("component", "admin")),
		userStore:    userStore,
		tokenStore:   tokenStore,
		sessionStore: sessionStore,
		signer:       signer,
		rateLimiter:  middleware.NewRateLimiter(),
		analytics:    analyticsClient,
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// TokenStore returns the token store for cleanup tasks.
func (s *Server) TokenStore() *store.TokenStore {
	return s.tokenStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /authenticate", s.rateLimitedHandler(s.authH.Authenticate))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with the session middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireSession(s.sessionStore, s.userStore, s.signer, s.logger.With("component", "session"))
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

// healthHandler reports liveness plus whether the caller carries a live
// session, so clients can decide between login and dashboard on load.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	isAuth := false
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if sess, err := s.sessionStore.GetByToken(r.Context(), cookie.Value); err == nil && sess != nil {
			isAuth = true
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"up": true, "isAuth": isAuth})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("GET /me", s.authH.Me)
	mux.HandleFunc("DELETE /me", s.authH.DeleteMe)

	// Lists
	mux.HandleFunc("GET /lists", s.listH.List)
	mux.HandleFunc("POST /lists", s.listH.Create)
	mux.HandleFunc("GET /lists/{id}", s.listH.Get)
	mux.HandleFunc("PUT /lists/{id}", s.listH.Update)
	mux.HandleFunc("DELETE /lists/{id}", s.listH.Delete)
	mux.HandleFunc("POST /lists/{id}/invites", s.listH.Invite)

	// Invites
	mux.HandleFunc("GET /invites", s.listH.Invites)
	mux.HandleFunc("POST /invites/{listId}/accept", s.listH.AcceptInvite)

	// Ideas
	mux.HandleFunc("GET /ideas", s.ideaH.List)
	mux.HandleFunc("POST /ideas", s.ideaH.Create)
	mux.HandleFunc("DELETE /ideas/{id}", s.ideaH.Delete)

	// Bookmarks
	mux.HandleFunc("GET /bookmarks", s.bookmarkH.List)
	mux.HandleFunc("POST /bookmarks", s.bookmarkH.Create)
	mux.HandleFunc("PUT /bookmarks/{id}", s.bookmarkH.Update)
	mux.HandleFunc("DELETE /bookmarks/{id}", s.bookmarkH.Delete)

	// Admin
	mux.Handle("GET /admin/users", middleware.RequireAdmin(http.HandlerFunc(s.adminH.ListUsers)))
	mux.Handle("POST /admin/backup", middleware.RequireAdmin(http.HandlerFunc(s.adminH.Backup)))
}
