package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/theponti/rocco-api/internal/auth"
	"github.com/theponti/rocco-api/internal/store"
)

type IdeaHandler struct {
	ideaStore *store.IdeaStore
	logger    *slog.Logger
}

func NewIdeaHandler(is *store.IdeaStore, logger *slog.Logger) *IdeaHandler {
	return &IdeaHandler{ideaStore: is, logger: logger}
}

type ideaRequest struct {
	Description string `json:"description"`
}

func (h *IdeaHandler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	ideas, err := h.ideaStore.ListForUser(r.Context(), p.UserID)
	if err != nil {
		h.logger.Error("list ideas", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch ideas")
		return
	}
	writeJSON(w, http.StatusOK, ideas)
}

func (h *IdeaHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req ideaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}

	idea, err := h.ideaStore.Create(r.Context(), p.UserID, req.Description)
	if err != nil {
		h.logger.Error("create idea", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create idea")
		return
	}
	writeJSON(w, http.StatusCreated, idea)
}

func (h *IdeaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")

	err := h.ideaStore.Delete(r.Context(), id, p.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "idea not found")
		return
	}
	if err != nil {
		h.logger.Error("delete idea", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete idea")
		return
	}
	w.WriteHeader(http.StatusOK)
}
