package handler

import (
	"log/slog"
	"net/http"

	"github.com/theponti/rocco-api/internal/backup"
	"github.com/theponti/rocco-api/internal/store"
)

// AdminHandler serves routes behind the admin guard.
type AdminHandler struct {
	userStore *store.UserStore
	backups   *backup.Manager
	logger    *slog.Logger
}

func NewAdminHandler(us *store.UserStore, backups *backup.Manager, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{userStore: us, backups: backups, logger: logger}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userStore.List(r.Context())
	if err != nil {
		h.logger.Error("list users", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) Backup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil || !h.backups.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	}

	key, err := h.backups.Run(r.Context())
	if err != nil {
		h.logger.Error("backup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "backup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key})
}
