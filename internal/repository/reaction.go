package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/socialnet/internal/logger"
	"github.com/socialnet/internal/model"
)

type ReactionRepository struct {
	pool *pgxpool.Pool
}

func NewReactionRepository(pool *pgxpool.Pool) *ReactionRepository {
	return &ReactionRepository{pool: pool}
}

// Toggle applies the reaction toggle for (messageID, userID):
//
//	no existing reaction        -> insert, "added"
//	same reaction again         -> delete, "removed"
//	different reaction          -> replace, "updated"
//
// Concurrent toggles for the same (messageID, userID) are serialized with a
// transaction-scoped advisory lock. Row locking alone is not enough: two
// first-taps would both see no row and the loser would hit the primary key.
// Returns the action taken and the message's new total reaction count.
func (r *ReactionRepository) Toggle(ctx context.Context, messageID int64, userID, reaction string) (model.ReactionAction, int, error) {
	defer logger.DeferLogDuration("reaction.Toggle", time.Now())()
	if reaction == "" {
		return "", 0, fmt.Errorf("reactionRepo.Toggle: empty reaction: %w", ErrValidation)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("reactionRepo.Toggle begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM messages WHERE id = $1)`, messageID,
	).Scan(&exists); err != nil {
		return "", 0, fmt.Errorf("reactionRepo.Toggle message check: %w", err)
	}
	if !exists {
		return "", 0, ErrNotFound
	}

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1::text || ':' || $2, 0))`,
		messageID, userID,
	); err != nil {
		return "", 0, fmt.Errorf("reactionRepo.Toggle lock: %w", err)
	}

	var action model.ReactionAction
	var current string
	err = tx.QueryRow(ctx,
		`SELECT reaction FROM message_reactions WHERE message_id = $1 AND user_id = $2`,
		messageID, userID,
	).Scan(&current)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := tx.Exec(ctx,
			`INSERT INTO message_reactions (message_id, user_id, reaction) VALUES ($1, $2, $3)`,
			messageID, userID, reaction,
		); err != nil {
			return "", 0, fmt.Errorf("reactionRepo.Toggle insert: %w", err)
		}
		action = model.ReactionAdded
	case err != nil:
		return "", 0, fmt.Errorf("reactionRepo.Toggle select: %w", err)
	case current == reaction:
		if _, err := tx.Exec(ctx,
			`DELETE FROM message_reactions WHERE message_id = $1 AND user_id = $2`,
			messageID, userID,
		); err != nil {
			return "", 0, fmt.Errorf("reactionRepo.Toggle delete: %w", err)
		}
		action = model.ReactionRemoved
	default:
		if _, err := tx.Exec(ctx,
			`UPDATE message_reactions SET reaction = $3 WHERE message_id = $1 AND user_id = $2`,
			messageID, userID, reaction,
		); err != nil {
			return "", 0, fmt.Errorf("reactionRepo.Toggle update: %w", err)
		}
		action = model.ReactionUpdated
	}

	var count int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM message_reactions WHERE message_id = $1`, messageID,
	).Scan(&count); err != nil {
		return "", 0, fmt.Errorf("reactionRepo.Toggle count: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", 0, fmt.Errorf("reactionRepo.Toggle commit: %w", err)
	}
	return action, count, nil
}

// GetByMessage returns all reactions on a message, oldest first.
func (r *ReactionRepository) GetByMessage(ctx context.Context, messageID int64) ([]model.Reaction, error) {
	defer logger.DeferLogDuration("reaction.GetByMessage", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT message_id, user_id, reaction, created_at
		 FROM message_reactions
		 WHERE message_id = $1
		 ORDER BY created_at`, messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("reactionRepo.GetByMessage query: %w", err)
	}
	defer rows.Close()

	reactions := make([]model.Reaction, 0, 8)
	for rows.Next() {
		var rc model.Reaction
		if err := rows.Scan(&rc.MessageID, &rc.UserID, &rc.Reaction, &rc.CreatedAt); err != nil {
			return nil, fmt.Errorf("reactionRepo.GetByMessage scan: %w", err)
		}
		reactions = append(reactions, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reactionRepo.GetByMessage rows: %w", err)
	}
	return reactions, nil
}
