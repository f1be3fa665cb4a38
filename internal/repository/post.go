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

const postCols = `p.id, p.author_id, p.content, p.image_url, p.created_at,
	u.id, u.username, u.email, u.profile_picture_url,
	(SELECT COUNT(*) FROM post_likes pl WHERE pl.post_id = p.id),
	(SELECT COUNT(*) FROM comments cm WHERE cm.post_id = p.id)`

type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

func scanPost(s interface{ Scan(dest ...any) error }, p *model.Post) error {
	author := &model.UserPublic{}
	if err := s.Scan(&p.ID, &p.AuthorID, &p.Content, &p.ImageURL, &p.CreatedAt,
		&author.ID, &author.Username, &author.Email, &author.ProfilePictureURL,
		&p.LikeCount, &p.CommentCount); err != nil {
		return err
	}
	p.Author = author
	return nil
}

func (r *PostRepository) Create(ctx context.Context, authorID, content, imageURL string) (*model.Post, error) {
	defer logger.DeferLogDuration("post.Create", time.Now())()
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("postRepo.Create: empty content: %w", ErrValidation)
	}
	p := &model.Post{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Content:   content,
		ImageURL:  imageURL,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO posts (id, author_id, content, image_url, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.AuthorID, p.Content, p.ImageURL, p.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("postRepo.Create: %w", err)
	}
	return p, nil
}

func (r *PostRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
	defer logger.DeferLogDuration("post.GetByID", time.Now())()
	p := &model.Post{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+postCols+` FROM posts p JOIN users u ON u.id = p.author_id WHERE p.id = $1`, id)
	if err := scanPost(row, p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postRepo.GetByID: %w", err)
	}
	return p, nil
}

func (r *PostRepository) queryPosts(ctx context.Context, name, sql string, args ...any) ([]model.Post, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postRepo.%s query: %w", name, err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, 16)
	for rows.Next() {
		var p model.Post
		if err := scanPost(rows, &p); err != nil {
			return nil, fmt.Errorf("postRepo.%s scan: %w", name, err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postRepo.%s rows: %w", name, err)
	}
	return posts, nil
}

// Feed returns posts by the user and everyone the user follows, newest first.
func (r *PostRepository) Feed(ctx context.Context, userID string, limit, offset int) ([]model.Post, error) {
	defer logger.DeferLogDuration("post.Feed", time.Now())()
	return r.queryPosts(ctx, "Feed",
		`SELECT `+postCols+`
		 FROM posts p
		 JOIN users u ON u.id = p.author_id
		 WHERE p.author_id = $1
		    OR p.author_id IN (SELECT followee_id FROM follows WHERE follower_id = $1)
		 ORDER BY p.created_at DESC
		 LIMIT $2 OFFSET $3`, userID, limit, offset)
}

// ListAll returns all posts newest first (the explore page).
func (r *PostRepository) ListAll(ctx context.Context, limit, offset int) ([]model.Post, error) {
	defer logger.DeferLogDuration("post.ListAll", time.Now())()
	return r.queryPosts(ctx, "ListAll",
		`SELECT `+postCols+`
		 FROM posts p
		 JOIN users u ON u.id = p.author_id
		 ORDER BY p.created_at DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *PostRepository) ListByAuthor(ctx context.Context, authorID string, limit, offset int) ([]model.Post, error) {
	defer logger.DeferLogDuration("post.ListByAuthor", time.Now())()
	return r.queryPosts(ctx, "ListByAuthor",
		`SELECT `+postCols+`
		 FROM posts p
		 JOIN users u ON u.id = p.author_id
		 WHERE p.author_id = $1
		 ORDER BY p.created_at DESC
		 LIMIT $2 OFFSET $3`, authorID, limit, offset)
}

// Update edits a post's content and image. Author only.
func (r *PostRepository) Update(ctx context.Context, id, authorID, content, imageURL string) error {
	defer logger.DeferLogDuration("post.Update", time.Now())()
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("postRepo.Update: empty content: %w", ErrValidation)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE posts SET content = $1, image_url = $2 WHERE id = $3 AND author_id = $4`,
		content, imageURL, id, authorID,
	)
	if err != nil {
		return fmt.Errorf("postRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.ownerError(ctx, id)
	}
	return nil
}

// Delete removes a post. Author only; comments and likes cascade.
func (r *PostRepository) Delete(ctx context.Context, id, authorID string) error {
	defer logger.DeferLogDuration("post.Delete", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM posts WHERE id = $1 AND author_id = $2`, id, authorID,
	)
	if err != nil {
		return fmt.Errorf("postRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.ownerError(ctx, id)
	}
	return nil
}

// ownerError distinguishes "post gone" from "post owned by someone else"
// after a guarded write matched no rows.
func (r *PostRepository) ownerError(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("postRepo owner check: %w", err)
	}
	if exists {
		return ErrPermission
	}
	return ErrNotFound
}

// ToggleLike adds the user's like when absent and removes it when present.
// Returns the resulting state and the post's like count.
func (r *PostRepository) ToggleLike(ctx context.Context, postID, userID string) (liked bool, count int, err error) {
	defer logger.DeferLogDuration("post.ToggleLike", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("postRepo.ToggleLike begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, postID,
	).Scan(&exists); err != nil {
		return false, 0, fmt.Errorf("postRepo.ToggleLike post check: %w", err)
	}
	if !exists {
		return false, 0, ErrNotFound
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID,
	)
	if err != nil {
		return false, 0, fmt.Errorf("postRepo.ToggleLike delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := tx.Exec(ctx,
			`INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2)`, postID, userID,
		); err != nil {
			return false, 0, fmt.Errorf("postRepo.ToggleLike insert: %w", err)
		}
		liked = true
	}

	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM post_likes WHERE post_id = $1`, postID,
	).Scan(&count); err != nil {
		return false, 0, fmt.Errorf("postRepo.ToggleLike count: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, 0, fmt.Errorf("postRepo.ToggleLike commit: %w", err)
	}
	return liked, count, nil
}

func (r *PostRepository) AddComment(ctx context.Context, postID, authorID, content string) (*model.Comment, error) {
	defer logger.DeferLogDuration("post.AddComment", time.Now())()
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("postRepo.AddComment: empty content: %w", ErrValidation)
	}
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, postID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("postRepo.AddComment post check: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	c := &model.Comment{
		ID:        uuid.New().String(),
		PostID:    postID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO comments (id, post_id, author_id, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.PostID, c.AuthorID, c.Content, c.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("postRepo.AddComment: %w", err)
	}
	return c, nil
}

// Comments returns a post's comments newest first.
func (r *PostRepository) Comments(ctx context.Context, postID string, limit, offset int) ([]model.Comment, error) {
	defer logger.DeferLogDuration("post.Comments", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.post_id, c.author_id, c.content, c.created_at,
		        u.id, u.username, u.email, u.profile_picture_url
		 FROM comments c
		 JOIN users u ON u.id = c.author_id
		 WHERE c.post_id = $1
		 ORDER BY c.created_at DESC
		 LIMIT $2 OFFSET $3`, postID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postRepo.Comments query: %w", err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0, limit)
	for rows.Next() {
		var c model.Comment
		author := &model.UserPublic{}
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Content, &c.CreatedAt,
			&author.ID, &author.Username, &author.Email, &author.ProfilePictureURL); err != nil {
			return nil, fmt.Errorf("postRepo.Comments scan: %w", err)
		}
		c.Author = author
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postRepo.Comments rows: %w", err)
	}
	return comments, nil
}

// IsLiked reports whether the user has liked the post.
func (r *PostRepository) IsLiked(ctx context.Context, postID, userID string) (bool, error) {
	defer logger.DeferLogDuration("post.IsLiked", time.Now())()
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM post_likes WHERE post_id = $1 AND user_id = $2)`,
		postID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postRepo.IsLiked: %w", err)
	}
	return exists, nil
}
