package model

import "time"

type Post struct {
	ID           string      `json:"id"`
	AuthorID     string      `json:"author_id"`
	Content      string      `json:"content"`
	ImageURL     string      `json:"image_url,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	Author       *UserPublic `json:"author,omitempty"`
	LikeCount    int         `json:"like_count"`
	CommentCount int         `json:"comment_count"`
}

type Comment struct {
	ID        string      `json:"id"`
	PostID    string      `json:"post_id"`
	AuthorID  string      `json:"author_id"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
	Author    *UserPublic `json:"author,omitempty"`
}
