package storage

import (
	"context"

	"github.com/socialnet/internal/model"
)

// PresenceStore holds the ephemeral per-user presence state: online flag,
// last-seen time, status message and the typing slot. Implementations:
// redis.Client (production, shared across workers), memory.Client (for -dev
// and tests).
//
// The typing slot is single-valued: a user is typing in at most one
// conversation, and setting a new value implicitly clears the previous one.
// Typing state has no TTL: it stays until the client clears it or starts
// typing elsewhere.
type PresenceStore interface {
	// SetTyping records conversationID as the user's typing slot; an empty
	// conversationID clears the slot.
	SetTyping(ctx context.Context, userID, conversationID string) error
	// TypingUsers returns the ids of users whose typing slot equals
	// conversationID, excluding excludeUserID.
	TypingUsers(ctx context.Context, conversationID, excludeUserID string) ([]string, error)

	SetOnline(ctx context.Context, userID string, online bool) error
	TouchLastSeen(ctx context.Context, userID string) error
	SetStatusMessage(ctx context.Context, userID, message string) error
	Status(ctx context.Context, userID string) (model.PresenceStatus, error)

	Close() error
}
