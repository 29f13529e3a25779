package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blogpost-api/internal/apperror"
	"github.com/sakif/blogpost-api/internal/middleware"
	"github.com/sakif/blogpost-api/internal/model"
	"github.com/sakif/blogpost-api/internal/service"
)

const (
	msgPostNotFound = "Server could not find a requested post"
	msgCreateFailed = "Server could not create post because of a database error"
	msgReadFailed   = "Server could not read post because of a database error"
	msgUpdateFailed = "Server could not update post because of a database error"
	msgDeleteFailed = "Server could not delete post because of a database error"
	msgListFailed   = "Server could not list posts because of a database error"
)

// PostResponse wraps the post returned by create, update and delete.
type PostResponse struct {
	Message string      `json:"message"`
	Post    *model.Post `json:"post"`
}

type PostHandler struct {
	posts  *service.PostService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

// fail writes err, replacing the repository's not-found text with the
// client-facing one.
func (h *PostHandler) fail(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, apperror.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: msgPostNotFound})
		return
	}
	writeError(w, h.logger, err, fallback)
}

// input returns the body checked by middleware.ValidatePost.
func (h *PostHandler) input(w http.ResponseWriter, r *http.Request) (*model.PostInput, bool) {
	in, ok := middleware.PostInputFromContext(r.Context())
	if !ok {
		h.logger.Error("post route mounted without ValidatePost", slog.String("path", r.URL.Path))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Server could not read the request",
		})
		return nil, false
	}
	return in, true
}

// HandleList serves GET /posts?category=&keyword=&page=&limit=
//
// category must be a 32-bit integer when given. page and limit fall back to
// their defaults when missing, not numbers or below 1.
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := service.ListParams{
		Page:    atoiOrZero(q.Get("page")),
		Limit:   atoiOrZero(q.Get("limit")),
		Keyword: q.Get("keyword"),
	}

	if raw := strings.TrimSpace(q.Get("category")); raw != "" {
		// category_id is a 32-bit column on both backends
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "Category must be a number",
				Field:   "category",
			})
			return
		}
		id := int(n)
		params.CategoryID = &id
	}

	page, err := h.posts.List(r.Context(), params)
	if err != nil {
		writeError(w, h.logger, err, msgListFailed)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// HandleCreate serves POST /posts.
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := h.input(w, r)
	if !ok {
		return
	}

	post, err := h.posts.Create(r.Context(), *in)
	if err != nil {
		h.fail(w, err, msgCreateFailed)
		return
	}

	writeJSON(w, http.StatusCreated, PostResponse{Message: "Created post successfully", Post: post})
}

// HandleGet serves GET /posts/{id}.
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err, msgReadFailed)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleUpdate serves PUT /posts/{id}. The body replaces the whole post.
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	in, ok := h.input(w, r)
	if !ok {
		return
	}

	post, err := h.posts.Update(r.Context(), chi.URLParam(r, "id"), *in)
	if err != nil {
		h.fail(w, err, msgUpdateFailed)
		return
	}

	writeJSON(w, http.StatusOK, PostResponse{Message: "Updated post successfully", Post: post})
}

// HandleDelete serves DELETE /posts/{id} and returns the removed post.
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err, msgDeleteFailed)
		return
	}

	writeJSON(w, http.StatusOK, PostResponse{Message: "Deleted post successfully", Post: post})
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
