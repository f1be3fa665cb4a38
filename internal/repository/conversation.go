package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/socialnet/internal/logger"
	"github.com/socialnet/internal/model"
)

const conversationCols = `id, is_group, name, image_url, created_at, updated_at`

type ConversationRepository struct {
	pool *pgxpool.Pool
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

func scanConversation(s interface{ Scan(dest ...any) error }, c *model.Conversation) error {
	return s.Scan(&c.ID, &c.IsGroup, &c.Name, &c.ImageURL, &c.CreatedAt, &c.UpdatedAt)
}

// directKey builds the sorted participant-pair key that makes direct
// conversations unique per unordered pair.
func directKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return userA + ":" + userB
}

// FindOrCreateDirect returns the direct conversation between the two users,
// creating it if needed. The insert races through the partial unique index on
// direct_key, so concurrent calls from different workers converge on one row.
func (r *ConversationRepository) FindOrCreateDirect(ctx context.Context, userA, userB string) (*model.Conversation, error) {
	defer logger.DeferLogDuration("conv.FindOrCreateDirect", time.Now())()
	key := directKey(userA, userB)

	c := &model.Conversation{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+conversationCols+` FROM conversations WHERE direct_key = $1 AND is_group = FALSE`, key)
	err := scanConversation(row, c)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("convRepo.FindOrCreateDirect select: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("convRepo.FindOrCreateDirect begin: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	row = tx.QueryRow(ctx,
		`INSERT INTO conversations (id, is_group, direct_key, created_at, updated_at)
		 VALUES ($1, FALSE, $2, $3, $3)
		 ON CONFLICT (direct_key) WHERE is_group = FALSE AND direct_key <> '' DO NOTHING
		 RETURNING `+conversationCols,
		uuid.New().String(), key, now,
	)
	err = scanConversation(row, c)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race: another worker inserted the row first.
		row = tx.QueryRow(ctx,
			`SELECT `+conversationCols+` FROM conversations WHERE direct_key = $1 AND is_group = FALSE`, key)
		err = scanConversation(row, c)
	}
	if err != nil {
		return nil, fmt.Errorf("convRepo.FindOrCreateDirect insert: %w", err)
	}

	for _, uid := range []string{userA, userB} {
		if _, err := tx.Exec(ctx,
			`INSERT INTO conversation_participants (conversation_id, user_id, joined_at)
			 VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			c.ID, uid, now,
		); err != nil {
			return nil, fmt.Errorf("convRepo.FindOrCreateDirect participant: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("convRepo.FindOrCreateDirect commit: %w", err)
	}
	return c, nil
}

// CreateGroup creates a group conversation with the creator plus the given
// participants. Fails with ErrValidation when participantIDs is empty.
func (r *ConversationRepository) CreateGroup(ctx context.Context, creatorID string, participantIDs []string, name, imageURL string) (*model.Conversation, error) {
	defer logger.DeferLogDuration("conv.CreateGroup", time.Now())()
	if len(participantIDs) == 0 {
		return nil, fmt.Errorf("convRepo.CreateGroup: no participants: %w", ErrValidation)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("convRepo.CreateGroup begin: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	c := &model.Conversation{
		ID:        uuid.New().String(),
		IsGroup:   true,
		Name:      strings.TrimSpace(name),
		ImageURL:  imageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO conversations (id, is_group, name, image_url, created_at, updated_at)
		 VALUES ($1, TRUE, $2, $3, $4, $4)`,
		c.ID, c.Name, c.ImageURL, now,
	); err != nil {
		return nil, fmt.Errorf("convRepo.CreateGroup insert: %w", err)
	}

	seen := map[string]bool{}
	for _, uid := range append([]string{creatorID}, participantIDs...) {
		if seen[uid] {
			continue
		}
		seen[uid] = true
		if _, err := tx.Exec(ctx,
			`INSERT INTO conversation_participants (conversation_id, user_id, joined_at)
			 VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			c.ID, uid, now,
		); err != nil {
			return nil, fmt.Errorf("convRepo.CreateGroup participant: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("convRepo.CreateGroup commit: %w", err)
	}
	return c, nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	defer logger.DeferLogDuration("conv.GetByID", time.Now())()
	c := &model.Conversation{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+conversationCols+` FROM conversations WHERE id = $1`, id)
	if err := scanConversation(row, c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("convRepo.GetByID: %w", err)
	}
	return c, nil
}

// ListForUser returns the user's conversations newest-activity first:
// updated_at is bumped on every appended message, so this is the chat list
// ordering.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	defer logger.DeferLogDuration("conv.ListForUser", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.is_group, c.name, c.image_url, c.created_at, c.updated_at
		 FROM conversations c
		 JOIN conversation_participants cp ON cp.conversation_id = c.id
		 WHERE cp.user_id = $1
		 ORDER BY c.updated_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("convRepo.ListForUser query: %w", err)
	}
	defer rows.Close()

	convs := make([]model.Conversation, 0, 16)
	for rows.Next() {
		var c model.Conversation
		if err := scanConversation(rows, &c); err != nil {
			return nil, fmt.Errorf("convRepo.ListForUser scan: %w", err)
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("convRepo.ListForUser rows: %w", err)
	}
	return convs, nil
}

func (r *ConversationRepository) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	defer logger.DeferLogDuration("conv.IsParticipant", time.Now())()
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2)`,
		conversationID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("convRepo.IsParticipant: %w", err)
	}
	return exists, nil
}

func (r *ConversationRepository) Participants(ctx context.Context, conversationID string) ([]model.UserPublic, error) {
	defer logger.DeferLogDuration("conv.Participants", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.username, u.email, u.profile_picture_url
		 FROM users u
		 JOIN conversation_participants cp ON cp.user_id = u.id
		 WHERE cp.conversation_id = $1
		 ORDER BY cp.joined_at`, conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("convRepo.Participants query: %w", err)
	}
	defer rows.Close()

	users := make([]model.UserPublic, 0, 8)
	for rows.Next() {
		var u model.UserPublic
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.ProfilePictureURL); err != nil {
			return nil, fmt.Errorf("convRepo.Participants scan: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("convRepo.Participants rows: %w", err)
	}
	return users, nil
}

// OtherParticipant returns the participant other than userID. Only meaningful
// for direct conversations; ErrNotFound when there is no such participant.
func (r *ConversationRepository) OtherParticipant(ctx context.Context, conversationID, userID string) (*model.UserPublic, error) {
	defer logger.DeferLogDuration("conv.OtherParticipant", time.Now())()
	u := &model.UserPublic{}
	err := r.pool.QueryRow(ctx,
		`SELECT u.id, u.username, u.email, u.profile_picture_url
		 FROM users u
		 JOIN conversation_participants cp ON cp.user_id = u.id
		 WHERE cp.conversation_id = $1 AND cp.user_id != $2
		 ORDER BY cp.joined_at
		 LIMIT 1`, conversationID, userID,
	).Scan(&u.ID, &u.Username, &u.Email, &u.ProfilePictureURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("convRepo.OtherParticipant: %w", err)
	}
	return u, nil
}

// UnreadCount counts messages in the conversation whose read-by set does not
// include userID. The sender's own messages count until the sender opens the
// conversation, matching the read-model of the web client.
func (r *ConversationRepository) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	defer logger.DeferLogDuration("conv.UnreadCount", time.Now())()
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages m
		 WHERE m.conversation_id = $1
		   AND NOT EXISTS (SELECT 1 FROM message_reads mr WHERE mr.message_id = m.id AND mr.user_id = $2)`,
		conversationID, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("convRepo.UnreadCount: %w", err)
	}
	return count, nil
}
