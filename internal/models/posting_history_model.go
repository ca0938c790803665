package models

import "time"

type PostingHistory struct {
	ID             int64     `db:"id" json:"id"`
	PostID         string    `db:"post_id" json:"postId"`
	UserID         string    `db:"user_id" json:"userId"`
	Platform       string    `db:"platform" json:"platform"`
	PlatformPostID string    `db:"platform_post_id" json:"platformPostId"`
	HasMedia       bool      `db:"has_media" json:"hasMedia"`
	ErrorMessage   string    `db:"error_message" json:"errorMessage"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}
