package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/socialnet/internal/logger"
	"github.com/socialnet/internal/middleware"
	"github.com/socialnet/internal/repository"
	"github.com/socialnet/internal/storage"
)

type PresenceHandler struct {
	convRepo *repository.ConversationRepository
	presence storage.PresenceStore
}

func NewPresenceHandler(convRepo *repository.ConversationRepository, presence storage.PresenceStore) *PresenceHandler {
	return &PresenceHandler{convRepo: convRepo, presence: presence}
}

type TypingRequest struct {
	IsTyping bool `json:"is_typing"`
}

// SetTyping points the caller's typing slot at the conversation, or clears
// it. Starting to type here implicitly stops typing anywhere else.
func (h *PresenceHandler) SetTyping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	convID := chi.URLParam(r, "id")
	userID := middleware.GetUserID(ctx)

	ok, err := h.convRepo.IsParticipant(ctx, convID, userID)
	if err != nil {
		logger.Errorf("typing participant check conv=%s: %v", convID, err)
		writeError(w, http.StatusInternalServerError, "failed to check participant")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	var req TypingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	target := convID
	if !req.IsTyping {
		target = ""
	}
	if err := h.presence.SetTyping(ctx, userID, target); err != nil {
		logger.Errorf("set typing user=%s conv=%s: %v", userID, convID, err)
		writeError(w, http.StatusInternalServerError, "failed to update typing state")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type PresenceRequest struct {
	IsOnline      *bool   `json:"is_online"`
	StatusMessage *string `json:"status_message"`
}

// Update sets the caller's online flag and status message. Every call
// refreshes last-seen.
func (h *PresenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req PresenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	if req.IsOnline != nil {
		if err := h.presence.SetOnline(ctx, userID, *req.IsOnline); err != nil {
			logger.Errorf("set online user=%s: %v", userID, err)
			writeError(w, http.StatusInternalServerError, "failed to update presence")
			return
		}
	}
	if req.StatusMessage != nil {
		if err := h.presence.SetStatusMessage(ctx, userID, *req.StatusMessage); err != nil {
			logger.Errorf("set status user=%s: %v", userID, err)
			writeError(w, http.StatusInternalServerError, "failed to update presence")
			return
		}
	}
	if err := h.presence.TouchLastSeen(ctx, userID); err != nil {
		logger.Errorf("touch last seen user=%s: %v", userID, err)
	}

	status, err := h.presence.Status(ctx, userID)
	if err != nil {
		logger.Errorf("presence status user=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to read presence")
		return
	}
	writeJSON(w, http.StatusOK, status)
}
