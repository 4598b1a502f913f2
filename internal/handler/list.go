package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/theponti/rocco-api/internal/analytics"
	"github.com/theponti/rocco-api/internal/auth"
	"github.com/theponti/rocco-api/internal/store"
)

type ListHandler struct {
	listStore *store.ListStore
	analytics *analytics.Client
	logger    *slog.Logger
}

func NewListHandler(ls *store.ListStore, ac *analytics.Client, logger *slog.Logger) *ListHandler {
	return &ListHandler{listStore: ls, analytics: ac, logger: logger}
}

type listRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *ListHandler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	lists, err := h.listStore.ListForUser(r.Context(), p.UserID)
	if err != nil {
		h.logger.Error("list lists", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch lists")
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

func (h *ListHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	list, err := h.listStore.Create(r.Context(), p.UserID, req.Name, req.Description)
	if err != nil {
		h.logger.Error("create list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create list")
		return
	}

	h.analytics.Track(r.Context(), p.UserID, analytics.EventListCreated, map[string]any{"listId": list.ID})
	writeJSON(w, http.StatusCreated, list)
}

func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")

	list, err := h.listStore.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch list")
		return
	}
	if list == nil {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}

	ok, err := h.listStore.HasAccess(r.Context(), id, p.UserID)
	if err != nil {
		h.logger.Error("check list access", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch list")
		return
	}
	if !ok {
		writeError(w, http.StatusForbidden, "no access to this list")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (h *ListHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")

	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	list, err := h.listStore.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update list")
		return
	}
	if list == nil {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	if list.UserID != p.UserID {
		writeError(w, http.StatusForbidden, "only the owner can update a list")
		return
	}

	updated, err := h.listStore.Update(r.Context(), id, req.Name, req.Description)
	if err != nil {
		h.logger.Error("update list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update list")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")

	list, err := h.listStore.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete list")
		return
	}
	if list == nil {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	if list.UserID != p.UserID {
		writeError(w, http.StatusForbidden, "only the owner can delete a list")
		return
	}

	if err := h.listStore.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete list")
		return
	}
	w.WriteHeader(http.StatusOK)
}

type inviteRequest struct {
	Email string `json:"email"`
}

// Invite grants another email address access to an owned list.
func (h *ListHandler) Invite(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	list, err := h.listStore.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create invite")
		return
	}
	if list == nil {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	if list.UserID != p.UserID {
		writeError(w, http.StatusForbidden, "only the owner can invite to a list")
		return
	}

	invite, err := h.listStore.CreateInvite(r.Context(), id, req.Email, p.UserID)
	if err != nil {
		h.logger.Error("create invite", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create invite")
		return
	}
	writeJSON(w, http.StatusCreated, invite)
}

// Invites returns the caller's pending invites.
func (h *ListHandler) Invites(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	invites, err := h.listStore.PendingInvitesForEmail(r.Context(), p.Email)
	if err != nil {
		h.logger.Error("list invites", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch invites")
		return
	}
	writeJSON(w, http.StatusOK, invites)
}

// AcceptInvite records shared access for an invite addressed to the caller.
func (h *ListHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	listID := r.PathValue("listId")

	err := h.listStore.AcceptInvite(r.Context(), listID, p.Email, p.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "invite not found")
		return
	}
	if err != nil {
		h.logger.Error("accept invite", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to accept invite")
		return
	}
	w.WriteHeader(http.StatusOK)
}
