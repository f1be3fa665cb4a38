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

const userCols = `id, username, email, profile_picture_url, bio, location, website,
	is_private, show_online_status, email_notifications, push_notifications, created_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// scanUser scans a row into model.User (column order matches userCols).
func scanUser(s interface{ Scan(dest ...any) error }, u *model.User) error {
	return s.Scan(&u.ID, &u.Username, &u.Email, &u.ProfilePictureURL, &u.Bio, &u.Location, &u.Website,
		&u.IsPrivate, &u.ShowOnlineStatus, &u.EmailNotifications, &u.PushNotifications, &u.CreatedAt)
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	defer logger.DeferLogDuration("user.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, profile_picture_url, bio, location, website,
		     is_private, show_online_status, email_notifications, push_notifications, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.ID, u.Username, u.Email, u.ProfilePictureURL, u.Bio, u.Location, u.Website,
		u.IsPrivate, u.ShowOnlineStatus, u.EmailNotifications, u.PushNotifications, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("userRepo.Create: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	defer logger.DeferLogDuration("user.GetByID", time.Now())()
	u := &model.User{}
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
	if err := scanUser(row, u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("userRepo.GetByID: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	defer logger.DeferLogDuration("user.GetByUsername", time.Now())()
	u := &model.User{}
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE username = $1`, username)
	if err := scanUser(row, u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("userRepo.GetByUsername: %w", err)
	}
	return u, nil
}

// Search matches the query against username and email (case-insensitive
// substring), excluding excludeID. Used by the new-conversation user picker.
func (r *UserRepository) Search(ctx context.Context, query, excludeID string, limit int) ([]model.User, error) {
	defer logger.DeferLogDuration("user.Search", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+userCols+` FROM users
		 WHERE (username ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%') AND id != $2
		 ORDER BY username LIMIT $3`,
		query, excludeID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("userRepo.Search query: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, limit)
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("userRepo.Search scan: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("userRepo.Search rows: %w", err)
	}
	return users, nil
}

// UserSettings carries the editable profile fields. Nil pointers are left
// unchanged.
type UserSettings struct {
	ProfilePictureURL  *string `json:"profile_picture_url"`
	Bio                *string `json:"bio"`
	Location           *string `json:"location"`
	Website            *string `json:"website"`
	IsPrivate          *bool   `json:"is_private"`
	ShowOnlineStatus   *bool   `json:"show_online_status"`
	EmailNotifications *bool   `json:"email_notifications"`
	PushNotifications  *bool   `json:"push_notifications"`
}

func (r *UserRepository) UpdateSettings(ctx context.Context, userID string, s UserSettings) error {
	defer logger.DeferLogDuration("user.UpdateSettings", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET
		     profile_picture_url = COALESCE($1, profile_picture_url),
		     bio                 = COALESCE($2, bio),
		     location            = COALESCE($3, location),
		     website             = COALESCE($4, website),
		     is_private          = COALESCE($5, is_private),
		     show_online_status  = COALESCE($6, show_online_status),
		     email_notifications = COALESCE($7, email_notifications),
		     push_notifications  = COALESCE($8, push_notifications)
		 WHERE id = $9`,
		s.ProfilePictureURL, s.Bio, s.Location, s.Website,
		s.IsPrivate, s.ShowOnlineStatus, s.EmailNotifications, s.PushNotifications, userID,
	)
	if err != nil {
		return fmt.Errorf("userRepo.UpdateSettings: %w", err)
	}
	return nil
}

// Follow adds a directed follow edge. Idempotent; a self-edge is ignored.
func (r *UserRepository) Follow(ctx context.Context, followerID, followeeID string) error {
	defer logger.DeferLogDuration("user.Follow", time.Now())()
	if followerID == followeeID {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO follows (follower_id, followee_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		followerID, followeeID,
	)
	if err != nil {
		return fmt.Errorf("userRepo.Follow: %w", err)
	}
	return nil
}

func (r *UserRepository) Unfollow(ctx context.Context, followerID, followeeID string) error {
	defer logger.DeferLogDuration("user.Unfollow", time.Now())()
	_, err := r.pool.Exec(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`,
		followerID, followeeID,
	)
	if err != nil {
		return fmt.Errorf("userRepo.Unfollow: %w", err)
	}
	return nil
}

func (r *UserRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	defer logger.DeferLogDuration("user.IsFollowing", time.Now())()
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)`,
		followerID, followeeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("userRepo.IsFollowing: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) FollowerCount(ctx context.Context, userID string) (int, error) {
	defer logger.DeferLogDuration("user.FollowerCount", time.Now())()
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM follows WHERE followee_id = $1`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("userRepo.FollowerCount: %w", err)
	}
	return count, nil
}

// Usernames resolves user ids to usernames, in no particular order.
func (r *UserRepository) Usernames(ctx context.Context, ids []string) ([]string, error) {
	defer logger.DeferLogDuration("user.Usernames", time.Now())()
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT username FROM users WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("userRepo.Usernames query: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0, len(ids))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("userRepo.Usernames scan: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("userRepo.Usernames rows: %w", err)
	}
	return names, nil
}
