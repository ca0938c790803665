package models

import "time"

type ScheduledPost struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"userId"`
	Content      string    `db:"content" json:"content"`
	Platform     string    `db:"platform" json:"platform"`
	ScheduledFor time.Time `db:"scheduled_for" json:"scheduledFor"`
	MediaURL     *string   `db:"media_url" json:"mediaUrl"`
	Status       string    `db:"status" json:"status"` // pending, posted, failed
	PostID       *string   `db:"post_id" json:"postId"`
	Error        *string   `db:"error" json:"error"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

const (
	PostStatusPending = "pending"
	PostStatusPosted  = "posted"
	PostStatusFailed  = "failed"
)

const (
	PlatformTwitter  = "twitter"
	PlatformLinkedIn = "linkedin"
)

// IsTerminal reports whether the pipeline is done with the post.
func (p *ScheduledPost) IsTerminal() bool {
	return p.Status == PostStatusPosted || p.Status == PostStatusFailed
}

type MediaAsset struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	FileName  string    `db:"file_name" json:"fileName"`
	FileType  string    `db:"file_type" json:"fileType"`
	FileSize  int64     `db:"file_size" json:"fileSize"`
	FileURL   string    `db:"file_url" json:"fileUrl"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
