package model

import "time"

type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeFile     MessageType = "file"
	MessageTypeVoice    MessageType = "voice"
	MessageTypeLocation MessageType = "location"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeVoice, MessageTypeLocation:
		return true
	}
	return false
}

// Message ids are sequence-assigned, so within a conversation ordering by id
// equals ordering by creation time. Clients use the highest seen id as the
// sync watermark.
type Message struct {
	ID             int64       `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       string      `json:"sender_id"`
	Content        string      `json:"content"`
	Type           MessageType `json:"type"`
	FileURL        string      `json:"file_url,omitempty"`
	ImageURL       string      `json:"image_url,omitempty"`
	ReplyToID      *int64      `json:"reply_to_id,omitempty"`
	IsEdited       bool        `json:"is_edited"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	Sender         *UserPublic `json:"sender,omitempty"`
}

type Reaction struct {
	MessageID int64     `json:"message_id"`
	UserID    string    `json:"user_id"`
	Reaction  string    `json:"reaction"`
	CreatedAt time.Time `json:"created_at"`
}

// ReactionAction is the outcome of a reaction toggle.
type ReactionAction string

const (
	ReactionAdded   ReactionAction = "added"
	ReactionUpdated ReactionAction = "updated"
	ReactionRemoved ReactionAction = "removed"
)
