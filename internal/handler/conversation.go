package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/socialnet/internal/logger"
	"github.com/socialnet/internal/middleware"
	"github.com/socialnet/internal/model"
	"github.com/socialnet/internal/repository"
	"github.com/socialnet/internal/storage"
)

const (
	openMessageLimit = 50
	pollMessageLimit = 20
)

type ConversationHandler struct {
	convRepo *repository.ConversationRepository
	userRepo *repository.UserRepository
	msgRepo  *repository.MessageRepository
	presence storage.PresenceStore
}

func NewConversationHandler(convRepo *repository.ConversationRepository, userRepo *repository.UserRepository, msgRepo *repository.MessageRepository, presence storage.PresenceStore) *ConversationHandler {
	return &ConversationHandler{convRepo: convRepo, userRepo: userRepo, msgRepo: msgRepo, presence: presence}
}

// List returns the caller's conversations, newest activity first, enriched
// for the chat list.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	convs, err := h.convRepo.ListForUser(ctx, userID)
	if err != nil {
		logger.Errorf("conversation list user=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}

	result := make([]model.ConversationView, 0, len(convs))
	for i := range convs {
		view, err := h.enrich(ctx, &convs[i], userID)
		if err != nil {
			logger.Errorf("conversation enrich conv=%s: %v", convs[i].ID, err)
			continue
		}
		result = append(result, *view)
	}
	writeJSON(w, http.StatusOK, result)
}

type CreateConversationRequest struct {
	ParticipantIDs []string `json:"participant_ids"`
	Name           string   `json:"name"`
	ImageURL       string   `json:"image_url"`
}

// Create opens a conversation. One participant id makes (or finds) the direct
// conversation with that user; several make a group.
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if len(req.ParticipantIDs) == 0 {
		writeError(w, http.StatusBadRequest, "participant_ids is required")
		return
	}

	var conv *model.Conversation
	var err error
	if len(req.ParticipantIDs) == 1 {
		targetID := req.ParticipantIDs[0]
		if targetID == userID {
			writeError(w, http.StatusBadRequest, "cannot start a conversation with yourself")
			return
		}
		if _, err := h.userRepo.GetByID(ctx, targetID); err != nil {
			writeRepoError(w, err, "user not found", "failed to create conversation")
			return
		}
		conv, err = h.convRepo.FindOrCreateDirect(ctx, userID, targetID)
	} else {
		conv, err = h.convRepo.CreateGroup(ctx, userID, req.ParticipantIDs, req.Name, req.ImageURL)
	}
	if err != nil {
		writeRepoError(w, err, "conversation not found", "failed to create conversation")
		return
	}

	view, err := h.enrich(ctx, conv, userID)
	if err != nil {
		logger.Errorf("conversation enrich conv=%s: %v", conv.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to enrich conversation")
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// Open returns the conversation with its recent history and marks everything
// read for the caller. Non-participants get 404.
func (h *ConversationHandler) Open(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	convID := chi.URLParam(r, "id")
	userID := middleware.GetUserID(ctx)

	if !h.requireParticipant(w, ctx, convID, userID) {
		return
	}

	conv, err := h.convRepo.GetByID(ctx, convID)
	if err != nil {
		writeRepoError(w, err, "conversation not found", "failed to get conversation")
		return
	}

	messages, err := h.msgRepo.Recent(ctx, convID, openMessageLimit)
	if err != nil {
		logger.Errorf("conversation open messages conv=%s: %v", convID, err)
		writeError(w, http.StatusInternalServerError, "failed to get messages")
		return
	}

	// Opening the conversation is the read event.
	if err := h.msgRepo.MarkRead(ctx, convID, userID); err != nil {
		logger.Errorf("conversation open mark read conv=%s: %v", convID, err)
	}

	view, err := h.enrich(ctx, conv, userID)
	if err != nil {
		logger.Errorf("conversation enrich conv=%s: %v", convID, err)
		writeError(w, http.StatusInternalServerError, "failed to enrich conversation")
		return
	}
	view.UnreadCount = 0

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation": view,
		"messages":     messages,
	})
}

// MarkRead marks every message in the conversation read for the caller.
func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	convID := chi.URLParam(r, "id")
	userID := middleware.GetUserID(ctx)

	if !h.requireParticipant(w, ctx, convID, userID) {
		return
	}
	if err := h.msgRepo.MarkRead(ctx, convID, userID); err != nil {
		writeRepoError(w, err, "conversation not found", "failed to mark read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Updates is the polling endpoint. With last_message_id it returns only the
// messages past that watermark (an explicit 0 means the full history);
// without it, the recent tail. Either way it carries who else is typing
// right now.
func (h *ConversationHandler) Updates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	convID := chi.URLParam(r, "id")
	userID := middleware.GetUserID(ctx)

	if !h.requireParticipant(w, ctx, convID, userID) {
		return
	}

	var messages []model.Message
	var err error
	if raw := r.URL.Query().Get("last_message_id"); raw != "" {
		lastID, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid last_message_id")
			return
		}
		messages, err = h.msgRepo.After(ctx, convID, lastID)
	} else {
		messages, err = h.msgRepo.Recent(ctx, convID, pollMessageLimit)
	}
	if err != nil {
		logger.Errorf("conversation updates conv=%s: %v", convID, err)
		writeError(w, http.StatusInternalServerError, "failed to get updates")
		return
	}

	typingIDs, err := h.presence.TypingUsers(ctx, convID, userID)
	if err != nil {
		logger.Errorf("conversation updates typing conv=%s: %v", convID, err)
	}
	typingNames, err := h.userRepo.Usernames(ctx, typingIDs)
	if err != nil {
		logger.Errorf("conversation updates usernames conv=%s: %v", convID, err)
	}
	if typingNames == nil {
		typingNames = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages":     messages,
		"typing_users": typingNames,
	})
}

// requireParticipant writes 404 and returns false unless userID is in the
// conversation.
func (h *ConversationHandler) requireParticipant(w http.ResponseWriter, ctx context.Context, convID, userID string) bool {
	ok, err := h.convRepo.IsParticipant(ctx, convID, userID)
	if err != nil {
		logger.Errorf("participant check conv=%s: %v", convID, err)
		writeError(w, http.StatusInternalServerError, "failed to check participant")
		return false
	}
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return false
	}
	return true
}

func (h *ConversationHandler) enrich(ctx context.Context, conv *model.Conversation, userID string) (*model.ConversationView, error) {
	participants, err := h.convRepo.Participants(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	lastMsg, err := h.msgRepo.Last(ctx, conv.ID)
	if err != nil {
		logger.Errorf("enrich last message conv=%s: %v", conv.ID, err)
	}

	unread, err := h.convRepo.UnreadCount(ctx, conv.ID, userID)
	if err != nil {
		logger.Errorf("enrich unread count conv=%s: %v", conv.ID, err)
	}

	view := &model.ConversationView{
		Conversation: *conv,
		Participants: participants,
		LastMessage:  lastMsg,
		UnreadCount:  unread,
	}
	if !conv.IsGroup {
		other, err := h.convRepo.OtherParticipant(ctx, conv.ID, userID)
		if err == nil {
			view.OtherUser = other
		}
	}
	return view, nil
}
