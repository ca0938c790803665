package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/mailtosocial/internal/models"
)

const scheduledPostColumns = `id, user_id, content, platform, scheduled_for, media_url, status, post_id, error, created_at, updated_at`

// ScheduledPostRepository is the store the publishing pipeline polls.
// Status write-backs only touch rows that are still pending, so a post
// that reached posted or failed is never rewritten.
type ScheduledPostRepository interface {
	Create(ctx context.Context, post *models.ScheduledPost) error
	GetByID(ctx context.Context, id string) (*models.ScheduledPost, error)
	ListByUserID(ctx context.Context, userID, status string) ([]*models.ScheduledPost, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error)
	Update(ctx context.Context, post *models.ScheduledPost) (bool, error)
	Remove(ctx context.Context, id, userID string) (bool, error)
	MarkPosted(ctx context.Context, id, platformPostID string) (bool, error)
	MarkFailed(ctx context.Context, id, message string) (bool, error)
}

type scheduledPostRepository struct {
	db *sql.DB
}

func NewScheduledPostRepository(db *sql.DB) ScheduledPostRepository {
	return &scheduledPostRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScheduledPost(row rowScanner) (*models.ScheduledPost, error) {
	var p models.ScheduledPost
	err := row.Scan(&p.ID, &p.UserID, &p.Content, &p.Platform, &p.ScheduledFor, &p.MediaURL,
		&p.Status, &p.PostID, &p.Error, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ScheduledFor = p.ScheduledFor.UTC()
	return &p, nil
}

func (r *scheduledPostRepository) Create(ctx context.Context, post *models.ScheduledPost) error {
	query := `
		INSERT INTO scheduled_posts (id, user_id, content, platform, scheduled_for, media_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, post.ID, post.UserID, post.Content, post.Platform,
		post.ScheduledFor.UTC(), post.MediaURL, post.Status).Scan(&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *scheduledPostRepository) GetByID(ctx context.Context, id string) (*models.ScheduledPost, error) {
	query := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts WHERE id = $1`

	post, err := scanScheduledPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *scheduledPostRepository) ListByUserID(ctx context.Context, userID, status string) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts WHERE user_id = $1`
	args := []any{userID}

	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY scheduled_for DESC`

	return r.list(ctx, query, args...)
}

// ListDue returns pending posts whose scheduled time is at or before now.
// It is a plain read: nothing is claimed or locked.
func (r *scheduledPostRepository) ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for, id`

	return r.list(ctx, query, models.PostStatusPending, now.UTC())
}

func (r *scheduledPostRepository) list(ctx context.Context, query string, args ...any) ([]*models.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanScheduledPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *scheduledPostRepository) Update(ctx context.Context, post *models.ScheduledPost) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET content = $1,
			scheduled_for = $2,
			media_url = $3,
			updated_at = $4
		WHERE id = $5 AND user_id = $6 AND status = 'pending'
	`
	return r.exec(ctx, query, post.Content, post.ScheduledFor.UTC(), post.MediaURL, time.Now().UTC(), post.ID, post.UserID)
}

func (r *scheduledPostRepository) Remove(ctx context.Context, id, userID string) (bool, error) {
	query := `DELETE FROM scheduled_posts WHERE id = $1 AND user_id = $2`
	return r.exec(ctx, query, id, userID)
}

func (r *scheduledPostRepository) MarkPosted(ctx context.Context, id, platformPostID string) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1,
			post_id = $2,
			error = NULL,
			updated_at = $3
		WHERE id = $4 AND status = 'pending'
	`
	return r.exec(ctx, query, models.PostStatusPosted, platformPostID, time.Now().UTC(), id)
}

func (r *scheduledPostRepository) MarkFailed(ctx context.Context, id, message string) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1,
			error = $2,
			updated_at = $3
		WHERE id = $4 AND status = 'pending'
	`
	return r.exec(ctx, query, models.PostStatusFailed, message, time.Now().UTC(), id)
}

func (r *scheduledPostRepository) exec(ctx context.Context, query string, args ...any) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected > 0, nil
}
