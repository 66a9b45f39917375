package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/formaplus/internal/middleware"
	"github.com/mmeshcher/formaplus/internal/service"
)

// CreatePost создаёт публикацию текущего пользователя.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req service.CreatePostInput
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err, "invalid post payload")
		return
	}

	p, err := h.service.CreatePost(r.Context(), userID, req)
	if err != nil {
		h.fail(w, r, err, "invalid post payload")
		return
	}

	writeJSON(w, http.StatusCreated, newPostResponse(p))
}

type postsEnvelope struct {
	Posts []postResponse `json:"posts"`
}

// ListPosts возвращает публикации текущего пользователя.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	posts, err := h.service.ListPosts(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	resp := postsEnvelope{Posts: make([]postResponse, 0, len(posts))}
	for i := range posts {
		resp.Posts = append(resp.Posts, newPostResponse(&posts[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

type postEnvelope struct {
	Post postResponse `json:"post"`
}

// GetPost возвращает публикацию текущего пользователя.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	p, err := h.service.GetPost(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, postEnvelope{Post: newPostResponse(p)})
}

// DeletePost удаляет публикацию текущего пользователя.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.service.DeletePost(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
