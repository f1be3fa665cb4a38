package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/socialnet/internal/logger"
	"github.com/socialnet/internal/middleware"
	"github.com/socialnet/internal/repository"
)

const (
	feedLimit    = 20
	commentLimit = 50
)

type PostHandler struct {
	postRepo *repository.PostRepository
}

func NewPostHandler(postRepo *repository.PostRepository) *PostHandler {
	return &PostHandler{postRepo: postRepo}
}

// Feed returns posts by the caller and everyone they follow, newest first.
func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	limit := queryInt(r, "limit", feedLimit)
	offset := queryInt(r, "offset", 0)
	posts, err := h.postRepo.Feed(ctx, userID, limit, offset)
	if err != nil {
		logger.Errorf("feed user=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to get feed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

// Explore returns all posts newest first.
func (h *PostHandler) Explore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := queryInt(r, "limit", feedLimit)
	offset := queryInt(r, "offset", 0)
	posts, err := h.postRepo.ListAll(ctx, limit, offset)
	if err != nil {
		logger.Errorf("explore: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get posts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

// Get returns a single post with its comments and the caller's like state.
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	postID := chi.URLParam(r, "id")

	post, err := h.postRepo.GetByID(ctx, postID)
	if err != nil {
		writeRepoError(w, err, "post not found", "failed to get post")
		return
	}

	comments, err := h.postRepo.Comments(ctx, postID, commentLimit, 0)
	if err != nil {
		logger.Errorf("post comments post=%s: %v", postID, err)
		writeError(w, http.StatusInternalServerError, "failed to get post")
		return
	}
	isLiked, err := h.postRepo.IsLiked(ctx, postID, userID)
	if err != nil {
		logger.Errorf("post like state post=%s: %v", postID, err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"post":     post,
		"comments": comments,
		"is_liked": isLiked,
	})
}

type PostRequest struct {
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	post, err := h.postRepo.Create(ctx, userID, req.Content, req.ImageURL)
	if err != nil {
		writeRepoError(w, err, "post not found", "failed to create post")
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	postID := chi.URLParam(r, "id")

	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	if err := h.postRepo.Update(ctx, postID, userID, req.Content, req.ImageURL); err != nil {
		writeRepoError(w, err, "post not found", "failed to update post")
		return
	}
	post, err := h.postRepo.GetByID(ctx, postID)
	if err != nil {
		writeRepoError(w, err, "post not found", "failed to update post")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	postID := chi.URLParam(r, "id")

	if err := h.postRepo.Delete(ctx, postID, userID); err != nil {
		writeRepoError(w, err, "post not found", "failed to delete post")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ToggleLike flips the caller's like on a post.
func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	postID := chi.URLParam(r, "id")

	liked, count, err := h.postRepo.ToggleLike(ctx, postID, userID)
	if err != nil {
		writeRepoError(w, err, "post not found", "failed to toggle like")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"is_liked":    liked,
		"likes_count": count,
	})
}

type CommentRequest struct {
	Content string `json:"content"`
}

func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	postID := chi.URLParam(r, "id")

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	comment, err := h.postRepo.AddComment(ctx, postID, userID, req.Content)
	if err != nil {
		writeRepoError(w, err, "post not found", "failed to add comment")
		return
	}

	post, err := h.postRepo.GetByID(ctx, postID)
	if err != nil {
		writeRepoError(w, err, "post not found", "failed to add comment")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":        true,
		"comment":        comment,
		"comments_count": post.CommentCount,
	})
}
