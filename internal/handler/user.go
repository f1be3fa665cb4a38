package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/socialnet/internal/logger"
	"github.com/socialnet/internal/middleware"
	"github.com/socialnet/internal/model"
	"github.com/socialnet/internal/repository"
	"github.com/socialnet/internal/storage"
)

const (
	searchMinQueryLen = 2
	searchLimit       = 10
	profilePostLimit  = 20
)

type UserHandler struct {
	userRepo *repository.UserRepository
	postRepo *repository.PostRepository
	presence storage.PresenceStore
}

func NewUserHandler(userRepo *repository.UserRepository, postRepo *repository.PostRepository, presence storage.PresenceStore) *UserHandler {
	return &UserHandler{userRepo: userRepo, postRepo: postRepo, presence: presence}
}

// Search finds users by username or email substring. Queries shorter than two
// characters return an empty list rather than the whole user table.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < searchMinQueryLen {
		writeJSON(w, http.StatusOK, map[string]any{"users": []model.UserPublic{}})
		return
	}

	users, err := h.userRepo.Search(ctx, query, userID, searchLimit)
	if err != nil {
		logger.Errorf("user search q=%q: %v", query, err)
		writeError(w, http.StatusInternalServerError, "failed to search users")
		return
	}

	result := make([]model.UserPublic, 0, len(users))
	for i := range users {
		result = append(result, users[i].ToPublic())
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": result})
}

// GetProfile returns a user's public profile with their posts and the
// caller's follow state. Presence is included only when the profile owner
// shares it.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)
	username := chi.URLParam(r, "username")

	user, err := h.userRepo.GetByUsername(ctx, username)
	if err != nil {
		writeRepoError(w, err, "user not found", "failed to get profile")
		return
	}

	posts, err := h.postRepo.ListByAuthor(ctx, user.ID, profilePostLimit, 0)
	if err != nil {
		logger.Errorf("profile posts user=%s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to get profile")
		return
	}

	isFollowing, err := h.userRepo.IsFollowing(ctx, viewerID, user.ID)
	if err != nil {
		logger.Errorf("profile follow state user=%s: %v", user.ID, err)
	}
	followers, err := h.userRepo.FollowerCount(ctx, user.ID)
	if err != nil {
		logger.Errorf("profile follower count user=%s: %v", user.ID, err)
	}

	resp := map[string]any{
		"user":            user.ToPublic(),
		"bio":             user.Bio,
		"location":        user.Location,
		"website":         user.Website,
		"is_private":      user.IsPrivate,
		"posts":           posts,
		"is_following":    isFollowing,
		"followers_count": followers,
		"is_self":         user.ID == viewerID,
	}
	if user.ShowOnlineStatus {
		status, err := h.presence.Status(ctx, user.ID)
		if err != nil {
			logger.Errorf("profile presence user=%s: %v", user.ID, err)
		} else {
			resp["presence"] = status
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Me returns the caller's own account with settings.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		writeRepoError(w, err, "user not found", "failed to get account")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateSettings applies a partial settings update; absent fields keep their
// value.
func (h *UserHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req repository.UserSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.userRepo.UpdateSettings(ctx, userID, req); err != nil {
		writeRepoError(w, err, "user not found", "failed to update settings")
		return
	}

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		writeRepoError(w, err, "user not found", "failed to update settings")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Follow adds the caller as a follower of the target user.
func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	h.setFollow(w, r, true)
}

// Unfollow removes the caller from the target user's followers.
func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.setFollow(w, r, false)
}

func (h *UserHandler) setFollow(w http.ResponseWriter, r *http.Request, follow bool) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	targetID := chi.URLParam(r, "id")

	if _, err := h.userRepo.GetByID(ctx, targetID); err != nil {
		writeRepoError(w, err, "user not found", "failed to update follow state")
		return
	}

	var err error
	if follow {
		err = h.userRepo.Follow(ctx, userID, targetID)
	} else {
		err = h.userRepo.Unfollow(ctx, userID, targetID)
	}
	if err != nil {
		writeRepoError(w, err, "user not found", "failed to update follow state")
		return
	}

	count, err := h.userRepo.FollowerCount(ctx, targetID)
	if err != nil {
		logger.Errorf("follower count user=%s: %v", targetID, err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"is_following":    follow,
		"followers_count": count,
	})
}
