package handlers

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"ridemate/internal/middleware"
	"ridemate/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/nullable"
	"github.com/rs/zerolog/log"
)

const maxUploadSize = 50 << 20

// PostHandler handles social feed requests
type PostHandler struct {
	posts *services.PostService
}

// NewPostHandler creates a new post handler
func NewPostHandler(posts *services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// PostRequest is the JSON form of a post body. An absent content leaves an
// edited post's text alone.
type PostRequest struct {
	Content nullable.Nullable[string] `json:"content,omitempty"`
}

// CommentRequest is the body of POST /api/v1/posts/{id}/comments
type CommentRequest struct {
	Content string `json:"content"`
}

// ListPosts handles GET /api/v1/posts
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.posts.All())
}

// ListByAuthor handles GET /api/v1/users/{user_id}/posts
func (h *PostHandler) ListByAuthor(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.posts.ByAuthor(chi.URLParam(r, "user_id")))
}

// CreatePost handles POST /api/v1/posts (JSON or multipart with a media file)
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	content, upload, closeUpload, err := readPostBody(w, r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer closeUpload()

	text := ""
	if content.IsSpecified() && !content.IsNull() {
		text = content.MustGet()
	}

	post, err := h.posts.Create(r.Context(), text, upload)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	log.Info().
		Str("post_id", post.ID).
		Str("user_id", middleware.GetUserID(r.Context())).
		Bool("media", post.Media != nil).
		Msg("Post created")
	respondJSON(w, http.StatusCreated, post)
}

// EditPost handles PATCH /api/v1/posts/{id}
func (h *PostHandler) EditPost(w http.ResponseWriter, r *http.Request) {
	content, upload, closeUpload, err := readPostBody(w, r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer closeUpload()

	post, err := h.posts.Edit(r.Context(), chi.URLParam(r, "id"), content, upload)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// DeletePost handles DELETE /api/v1/posts/{id}
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LikePost handles POST /api/v1/posts/{id}/like
func (h *PostHandler) LikePost(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Like(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// CommentPost handles POST /api/v1/posts/{id}/comments
func (h *PostHandler) CommentPost(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.posts.Comment(r.Context(), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, post)
}

// readPostBody reads the content and optional media file of a post request
func readPostBody(w http.ResponseWriter, r *http.Request) (nullable.Nullable[string], *services.MediaUpload, func(), error) {
	noop := func() {}

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		var req PostRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, nil, noop, errors.New("invalid request body")
		}
		return req.Content, nil, noop, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, nil, noop, errors.New("invalid multipart body")
	}

	var content nullable.Nullable[string]
	if values, ok := r.MultipartForm.Value["content"]; ok && len(values) > 0 {
		content = nullable.NewNullableWithValue(values[0])
	}

	file, header, err := r.FormFile("media")
	if errors.Is(err, http.ErrMissingFile) {
		return content, nil, noop, nil
	}
	if err != nil {
		return nil, nil, noop, errors.New("invalid media file")
	}

	return content, uploadFrom(file, header), func() { file.Close() }, nil
}

func uploadFrom(file multipart.File, header *multipart.FileHeader) *services.MediaUpload {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &services.MediaUpload{
		Filename:    header.Filename,
		ContentType: contentType,
		Body:        file,
	}
}
