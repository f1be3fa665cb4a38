package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/socialnet/internal/model"
)

// Keys:
//
//	presence:typing:{user}     -> conversation id (the typing slot)
//	presence:typing_in:{conv}  -> set of user ids typing in the conversation
//	presence:online:{user}     -> "1" when online
//	presence:last_seen:{user}  -> RFC3339 timestamp
//	presence:status:{user}     -> free-text status message
//
// The per-conversation set is kept in lockstep with the per-user slot so
// TypingUsers is a single SMEMBERS. No TTLs: typing state persists until the
// client clears it or starts typing elsewhere.
type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

func typingKey(userID string) string   { return "presence:typing:" + userID }
func typingInKey(convID string) string { return "presence:typing_in:" + convID }
func onlineKey(userID string) string   { return "presence:online:" + userID }
func lastSeenKey(userID string) string { return "presence:last_seen:" + userID }
func statusKey(userID string) string   { return "presence:status:" + userID }

func (c *Client) SetTyping(ctx context.Context, userID, conversationID string) error {
	old, err := c.cli.Get(ctx, typingKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("redis typing get: %w", err)
	}
	if old != "" && old != conversationID {
		if err := c.cli.SRem(ctx, typingInKey(old), userID).Err(); err != nil {
			return fmt.Errorf("redis typing srem: %w", err)
		}
	}
	if conversationID == "" {
		if err := c.cli.Del(ctx, typingKey(userID)).Err(); err != nil {
			return fmt.Errorf("redis typing del: %w", err)
		}
		return nil
	}
	if err := c.cli.Set(ctx, typingKey(userID), conversationID, 0).Err(); err != nil {
		return fmt.Errorf("redis typing set: %w", err)
	}
	if err := c.cli.SAdd(ctx, typingInKey(conversationID), userID).Err(); err != nil {
		return fmt.Errorf("redis typing sadd: %w", err)
	}
	return nil
}

func (c *Client) TypingUsers(ctx context.Context, conversationID, excludeUserID string) ([]string, error) {
	members, err := c.cli.SMembers(ctx, typingInKey(conversationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis typing smembers: %w", err)
	}
	users := make([]string, 0, len(members))
	for _, id := range members {
		if id != excludeUserID {
			users = append(users, id)
		}
	}
	return users, nil
}

func (c *Client) SetOnline(ctx context.Context, userID string, online bool) error {
	if online {
		if err := c.cli.Set(ctx, onlineKey(userID), "1", 0).Err(); err != nil {
			return fmt.Errorf("redis online set: %w", err)
		}
	} else {
		if err := c.cli.Del(ctx, onlineKey(userID)).Err(); err != nil {
			return fmt.Errorf("redis online del: %w", err)
		}
	}
	return c.TouchLastSeen(ctx, userID)
}

func (c *Client) TouchLastSeen(ctx context.Context, userID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := c.cli.Set(ctx, lastSeenKey(userID), now, 0).Err(); err != nil {
		return fmt.Errorf("redis last_seen set: %w", err)
	}
	return nil
}

func (c *Client) SetStatusMessage(ctx context.Context, userID, message string) error {
	if err := c.cli.Set(ctx, statusKey(userID), message, 0).Err(); err != nil {
		return fmt.Errorf("redis status set: %w", err)
	}
	return nil
}

func (c *Client) Status(ctx context.Context, userID string) (model.PresenceStatus, error) {
	var st model.PresenceStatus

	online, err := c.cli.Exists(ctx, onlineKey(userID)).Result()
	if err != nil {
		return st, fmt.Errorf("redis online exists: %w", err)
	}
	st.IsOnline = online > 0

	raw, err := c.cli.Get(ctx, lastSeenKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return st, fmt.Errorf("redis last_seen get: %w", err)
	}
	if raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			st.LastSeenAt = t
		}
	}

	msg, err := c.cli.Get(ctx, statusKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return st, fmt.Errorf("redis status get: %w", err)
	}
	st.StatusMessage = msg

	typing, err := c.cli.Get(ctx, typingKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return st, fmt.Errorf("redis typing get: %w", err)
	}
	st.TypingIn = typing

	return st, nil
}
