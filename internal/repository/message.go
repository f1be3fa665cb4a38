package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/socialnet/internal/logger"
	"github.com/socialnet/internal/model"
)

const messageCols = `m.id, m.conversation_id, m.sender_id, m.content, m.message_type,
	m.file_url, m.image_url, m.reply_to_id, m.is_edited, m.created_at, m.updated_at,
	u.id, u.username, u.email, u.profile_picture_url`

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func scanMessage(s interface{ Scan(dest ...any) error }, m *model.Message) error {
	sender := &model.UserPublic{}
	if err := s.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.Type,
		&m.FileURL, &m.ImageURL, &m.ReplyToID, &m.IsEdited, &m.CreatedAt, &m.UpdatedAt,
		&sender.ID, &sender.Username, &sender.Email, &sender.ProfilePictureURL); err != nil {
		return err
	}
	m.Sender = sender
	return nil
}

// AppendInput carries the optional fields of Append.
type AppendInput struct {
	Type      model.MessageType
	FileURL   string
	ImageURL  string
	ReplyToID *int64
}

// Append validates the sender and content, inserts the message and bumps the
// conversation's updated_at in the same transaction: a reader never observes
// a new message without the refreshed chat-list ordering key.
//
// Content must be non-empty after trimming, for every message type: even
// voice and location messages carry a textual body.
func (r *MessageRepository) Append(ctx context.Context, conversationID, senderID, content string, in AppendInput) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.Append", time.Now())()
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("msgRepo.Append: empty content: %w", ErrValidation)
	}
	if in.Type == "" {
		in.Type = model.MessageTypeText
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("msgRepo.Append: unknown message type %q: %w", in.Type, ErrValidation)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.Append begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var isParticipant bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2)`,
		conversationID, senderID,
	).Scan(&isParticipant); err != nil {
		return nil, fmt.Errorf("msgRepo.Append participant check: %w", err)
	}
	if !isParticipant {
		return nil, fmt.Errorf("msgRepo.Append: sender not in conversation: %w", ErrPermission)
	}

	m := &model.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Type:           in.Type,
		FileURL:        in.FileURL,
		ImageURL:       in.ImageURL,
		ReplyToID:      in.ReplyToID,
	}
	if err := tx.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, sender_id, content, message_type, file_url, image_url, reply_to_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		conversationID, senderID, content, in.Type, in.FileURL, in.ImageURL, in.ReplyToID,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, fmt.Errorf("msgRepo.Append insert: %w", err)
	}

	// The response renders the sender's name, so the returned message carries
	// the same joined-in sender as the read queries.
	sender := &model.UserPublic{}
	if err := tx.QueryRow(ctx,
		`SELECT id, username, email, profile_picture_url FROM users WHERE id = $1`, senderID,
	).Scan(&sender.ID, &sender.Username, &sender.Email, &sender.ProfilePictureURL); err != nil {
		return nil, fmt.Errorf("msgRepo.Append sender: %w", err)
	}
	m.Sender = sender

	if _, err := tx.Exec(ctx,
		`UPDATE conversations SET updated_at = NOW() WHERE id = $1`, conversationID,
	); err != nil {
		return nil, fmt.Errorf("msgRepo.Append touch conversation: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("msgRepo.Append commit: %w", err)
	}
	return m, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.GetByID", time.Now())()
	m := &model.Message{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+messageCols+`
		 FROM messages m
		 JOIN users u ON u.id = m.sender_id
		 WHERE m.id = $1`, id)
	if err := scanMessage(row, m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("msgRepo.GetByID: %w", err)
	}
	return m, nil
}

// Recent returns the last limit messages in chronological order. Internally
// fetched newest-first and reversed, so the limit cuts from the tail.
func (r *MessageRepository) Recent(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	defer logger.DeferLogDuration("msg.Recent", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+messageCols+`
		 FROM messages m
		 JOIN users u ON u.id = m.sender_id
		 WHERE m.conversation_id = $1
		 ORDER BY m.id DESC
		 LIMIT $2`, conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.Recent query: %w", err)
	}
	defer rows.Close()

	messages := make([]model.Message, 0, limit)
	for rows.Next() {
		var m model.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, fmt.Errorf("msgRepo.Recent scan: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("msgRepo.Recent rows: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// After returns all messages with id greater than afterID, ascending. This is
// the incremental-sync query: callers pass the highest id they have seen.
func (r *MessageRepository) After(ctx context.Context, conversationID string, afterID int64) ([]model.Message, error) {
	defer logger.DeferLogDuration("msg.After", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+messageCols+`
		 FROM messages m
		 JOIN users u ON u.id = m.sender_id
		 WHERE m.conversation_id = $1 AND m.id > $2
		 ORDER BY m.id`, conversationID, afterID,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.After query: %w", err)
	}
	defer rows.Close()

	messages := make([]model.Message, 0, 16)
	for rows.Next() {
		var m model.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, fmt.Errorf("msgRepo.After scan: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("msgRepo.After rows: %w", err)
	}
	return messages, nil
}

// Last returns the newest message of the conversation, or nil when empty.
func (r *MessageRepository) Last(ctx context.Context, conversationID string) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.Last", time.Now())()
	m := &model.Message{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+messageCols+`
		 FROM messages m
		 JOIN users u ON u.id = m.sender_id
		 WHERE m.conversation_id = $1
		 ORDER BY m.id DESC
		 LIMIT 1`, conversationID)
	if err := scanMessage(row, m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("msgRepo.Last: %w", err)
	}
	return m, nil
}

// MarkRead adds userID to the read-by set of every message in the
// conversation. Idempotent single statement; read marks are never removed.
func (r *MessageRepository) MarkRead(ctx context.Context, conversationID, userID string) error {
	defer logger.DeferLogDuration("msg.MarkRead", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO message_reads (message_id, user_id)
		 SELECT id, $2 FROM messages WHERE conversation_id = $1
		 ON CONFLICT DO NOTHING`,
		conversationID, userID,
	)
	if err != nil {
		return fmt.Errorf("msgRepo.MarkRead: %w", err)
	}
	return nil
}

// Edit replaces the message content and marks it edited. Only the original
// sender may edit; anyone else gets ErrPermission.
func (r *MessageRepository) Edit(ctx context.Context, id int64, editorID, content string) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.Edit", time.Now())()
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("msgRepo.Edit: empty content: %w", ErrValidation)
	}

	var senderID string
	err := r.pool.QueryRow(ctx,
		`SELECT sender_id FROM messages WHERE id = $1`, id,
	).Scan(&senderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("msgRepo.Edit lookup: %w", err)
	}
	if senderID != editorID {
		return nil, fmt.Errorf("msgRepo.Edit: editor is not the sender: %w", ErrPermission)
	}

	if _, err := r.pool.Exec(ctx,
		`UPDATE messages SET content = $1, is_edited = TRUE, updated_at = NOW() WHERE id = $2`,
		content, id,
	); err != nil {
		return nil, fmt.Errorf("msgRepo.Edit update: %w", err)
	}
	return r.GetByID(ctx, id)
}
