package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/socialnet/internal/middleware"
	"github.com/socialnet/internal/model"
	"github.com/socialnet/internal/repository"
)

type MessageHandler struct {
	msgRepo      *repository.MessageRepository
	reactionRepo *repository.ReactionRepository
}

func NewMessageHandler(msgRepo *repository.MessageRepository, reactionRepo *repository.ReactionRepository) *MessageHandler {
	return &MessageHandler{msgRepo: msgRepo, reactionRepo: reactionRepo}
}

type SendMessageRequest struct {
	Content   string `json:"content"`
	Type      string `json:"type"`
	FileURL   string `json:"file_url"`
	ImageURL  string `json:"image_url"`
	ReplyToID *int64 `json:"reply_to_id"`
}

// messagePayload is the shape the chat UI renders after sending: is_user and
// the short clock time let the client append the bubble without reformatting.
type messagePayload struct {
	ID       int64  `json:"id"`
	Content  string `json:"content"`
	Sender   string `json:"sender"`
	SenderID string `json:"sender_id"`
	IsUser   bool   `json:"is_user"`
	Time     string `json:"time"`
	Type     string `json:"type"`
	FileURL  string `json:"file_url,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

func toMessagePayload(m *model.Message, viewerID string) messagePayload {
	p := messagePayload{
		ID:       m.ID,
		Content:  m.Content,
		SenderID: m.SenderID,
		IsUser:   m.SenderID == viewerID,
		Time:     m.CreatedAt.Format("3:04 PM"),
		Type:     string(m.Type),
		FileURL:  m.FileURL,
		ImageURL: m.ImageURL,
	}
	if m.Sender != nil {
		p.Sender = m.Sender.Username
	}
	return p
}

// Send appends a message to the conversation. Senders outside the
// conversation get 404, like every other access to it.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	convID := chi.URLParam(r, "id")
	userID := middleware.GetUserID(ctx)

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	msg, err := h.msgRepo.Append(ctx, convID, userID, req.Content, repository.AppendInput{
		Type:      model.MessageType(req.Type),
		FileURL:   req.FileURL,
		ImageURL:  req.ImageURL,
		ReplyToID: req.ReplyToID,
	})
	if err != nil {
		writeRepoError(w, err, "conversation not found", "failed to send message")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": toMessagePayload(msg, userID),
	})
}

type EditMessageRequest struct {
	Content string `json:"content"`
}

// Edit replaces a message's content. Only the sender may edit: others get
// 403, not 404, since the message is visible to them anyway.
func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	msgID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	var req EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	msg, err := h.msgRepo.Edit(ctx, msgID, userID, req.Content)
	if err != nil {
		if errors.Is(err, repository.ErrPermission) {
			writeError(w, http.StatusForbidden, "only the sender can edit a message")
			return
		}
		writeRepoError(w, err, "message not found", "failed to edit message")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": toMessagePayload(msg, userID),
	})
}

type ReactRequest struct {
	Reaction string `json:"reaction"`
}

// React toggles the caller's reaction on a message: first tap adds, same tap
// removes, a different emoji replaces.
func (h *MessageHandler) React(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	msgID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	var req ReactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	action, count, err := h.reactionRepo.Toggle(ctx, msgID, userID, req.Reaction)
	if err != nil {
		writeRepoError(w, err, "message not found", "failed to toggle reaction")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"action":         action,
		"reaction_count": count,
	})
}
