package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/theponti/rocco-api/internal/auth"
	"github.com/theponti/rocco-api/internal/model"
	"github.com/theponti/rocco-api/internal/store"
)

type BookmarkHandler struct {
	bookmarkStore *store.BookmarkStore
	logger        *slog.Logger
}

func NewBookmarkHandler(bs *store.BookmarkStore, logger *slog.Logger) *BookmarkHandler {
	return &BookmarkHandler{bookmarkStore: bs, logger: logger}
}

// bookmarkRequest carries caller-supplied page metadata. The server does not
// fetch or scrape the URL itself.
type bookmarkRequest struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	SiteName    string `json:"siteName"`
}

func (req *bookmarkRequest) validate() string {
	req.URL = strings.TrimSpace(req.URL)
	req.Title = strings.TrimSpace(req.Title)
	if req.URL == "" {
		return "url is required"
	}
	if req.Title == "" {
		return "title is required"
	}
	return ""
}

func (req *bookmarkRequest) model() model.Bookmark {
	return model.Bookmark{
		URL:         req.URL,
		Title:       req.Title,
		Description: req.Description,
		Image:       req.Image,
		SiteName:    req.SiteName,
	}
}

func (h *BookmarkHandler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	bookmarks, err := h.bookmarkStore.ListForUser(r.Context(), p.UserID)
	if err != nil {
		h.logger.Error("list bookmarks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch bookmarks")
		return
	}
	writeJSON(w, http.StatusOK, bookmarks)
}

func (h *BookmarkHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req bookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	bookmark, err := h.bookmarkStore.Create(r.Context(), p.UserID, req.model())
	if err != nil {
		h.logger.Error("create bookmark", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create bookmark")
		return
	}
	writeJSON(w, http.StatusCreated, bookmark)
}

func (h *BookmarkHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")

	var req bookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	bookmark, err := h.bookmarkStore.Update(r.Context(), id, p.UserID, req.model())
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "bookmark not found")
		return
	}
	if err != nil {
		h.logger.Error("update bookmark", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update bookmark")
		return
	}
	writeJSON(w, http.StatusOK, bookmark)
}

func (h *BookmarkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")

	err := h.bookmarkStore.Delete(r.Context(), id, p.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "bookmark not found")
		return
	}
	if err != nil {
		h.logger.Error("delete bookmark", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete bookmark")
		return
	}
	w.WriteHeader(http.StatusOK)
}
