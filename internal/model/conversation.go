package model

import "time"

type Conversation struct {
	ID        string    `json:"id"`
	IsGroup   bool      `json:"is_group"`
	Name      string    `json:"name,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationView is a conversation enriched for the chat list: participants,
// the latest message, the caller's unread count and, for direct conversations,
// the other participant.
type ConversationView struct {
	Conversation Conversation `json:"conversation"`
	Participants []UserPublic `json:"participants"`
	LastMessage  *Message     `json:"last_message,omitempty"`
	OtherUser    *UserPublic  `json:"other_user,omitempty"`
	UnreadCount  int          `json:"unread_count"`
}
