package memory

import (
	"context"
	"sync"
	"time"

	"github.com/socialnet/internal/model"
)

// Client is the in-memory PresenceStore for -dev runs and tests. State is
// per-process, so it is not suitable for multi-worker deployments.
type Client struct {
	mu       sync.RWMutex
	typing   map[string]string // user id -> conversation id
	online   map[string]bool
	lastSeen map[string]time.Time
	status   map[string]string
}

func New() *Client {
	return &Client{
		typing:   make(map[string]string),
		online:   make(map[string]bool),
		lastSeen: make(map[string]time.Time),
		status:   make(map[string]string),
	}
}

func (c *Client) Close() error { return nil }

func (c *Client) SetTyping(ctx context.Context, userID, conversationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if conversationID == "" {
		delete(c.typing, userID)
		return nil
	}
	c.typing[userID] = conversationID
	return nil
}

func (c *Client) TypingUsers(ctx context.Context, conversationID, excludeUserID string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var users []string
	for uid, conv := range c.typing {
		if conv == conversationID && uid != excludeUserID {
			users = append(users, uid)
		}
	}
	return users, nil
}

func (c *Client) SetOnline(ctx context.Context, userID string, online bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if online {
		c.online[userID] = true
	} else {
		delete(c.online, userID)
	}
	c.lastSeen[userID] = time.Now().UTC()
	return nil
}

func (c *Client) TouchLastSeen(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeen[userID] = time.Now().UTC()
	return nil
}

func (c *Client) SetStatusMessage(ctx context.Context, userID, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status[userID] = message
	return nil
}

func (c *Client) Status(ctx context.Context, userID string) (model.PresenceStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return model.PresenceStatus{
		IsOnline:      c.online[userID],
		LastSeenAt:    c.lastSeen[userID],
		StatusMessage: c.status[userID],
		TypingIn:      c.typing[userID],
	}, nil
}
