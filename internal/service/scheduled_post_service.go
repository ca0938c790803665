package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/h2non/filetype"
	"github.com/maheshrc27/mailtosocial/internal/models"
	"github.com/maheshrc27/mailtosocial/internal/repository"
	"github.com/maheshrc27/mailtosocial/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrPostNotFound    = errors.New("scheduled post not found")
	ErrPostNotEditable = errors.New("only pending posts can be edited")
	ErrInvalidPost     = errors.New("invalid scheduled post")
)

// Past scheduling times within this window are accepted and picked up by
// the next tick.
const scheduleGrace = time.Minute

var contentLimits = map[string]int{
	models.PlatformTwitter:  280,
	models.PlatformLinkedIn: 3000,
}

var allowedImageTypes = map[string]struct{}{
	"jpg": {}, "png": {}, "gif": {}, "webp": {},
}

type ScheduledPostService interface {
	Create(ctx context.Context, userID string, in *transfer.ScheduledPostCreation, file *multipart.FileHeader) (*models.ScheduledPost, error)
	List(ctx context.Context, userID, status string) ([]*models.ScheduledPost, error)
	Get(ctx context.Context, userID, id string) (*models.ScheduledPost, error)
	Update(ctx context.Context, userID, id string, in *transfer.ScheduledPostUpdate) (*models.ScheduledPost, error)
	Remove(ctx context.Context, userID, id string) error
	History(ctx context.Context, userID, id string) ([]*models.PostingHistory, error)
}

type scheduledPostService struct {
	sp       repository.ScheduledPostRepository
	ma       repository.MediaAssetRepository
	ph       repository.PostingHistoryRepository
	storage  MediaStorage
	validate *validator.Validate
	maxBytes int64
	nowFn    func() time.Time
}

func NewScheduledPostService(
	sp repository.ScheduledPostRepository,
	ma repository.MediaAssetRepository,
	ph repository.PostingHistoryRepository,
	storage MediaStorage,
	maxBytes int64) ScheduledPostService {
	return &scheduledPostService{
		sp:       sp,
		ma:       ma,
		ph:       ph,
		storage:  storage,
		validate: validator.New(),
		maxBytes: maxBytes,
		nowFn:    time.Now,
	}
}

func (s *scheduledPostService) Create(ctx context.Context, userID string, in *transfer.ScheduledPostCreation, file *multipart.FileHeader) (*models.ScheduledPost, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: empty request", ErrInvalidPost)
	}
	in.Platform = strings.ToLower(strings.TrimSpace(in.Platform))

	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPost, err)
	}
	if err := s.checkContent(in.Platform, in.Content); err != nil {
		return nil, err
	}
	if err := s.checkSchedule(in.ScheduledFor); err != nil {
		return nil, err
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	post := &models.ScheduledPost{
		ID:           id,
		UserID:       userID,
		Content:      in.Content,
		Platform:     in.Platform,
		ScheduledFor: in.ScheduledFor.UTC(),
		Status:       models.PostStatusPending,
	}

	if in.MediaURL != "" {
		post.MediaURL = &in.MediaURL
	}

	var assetID string
	if file != nil {
		asset, err := s.saveFile(ctx, userID, file)
		if err != nil {
			return nil, err
		}
		assetID = asset.ID
		post.MediaURL = &asset.FileURL
	}

	if err := s.sp.Create(ctx, post); err != nil {
		if assetID != "" {
			if rerr := s.ma.Remove(ctx, assetID); rerr != nil {
				slog.Warn("remove orphaned media asset", "id", assetID, "error", rerr)
			}
		}
		return nil, fmt.Errorf("create scheduled post: %w", err)
	}

	slog.Info("scheduled post created", "id", post.ID, "platform", post.Platform, "scheduled_for", post.ScheduledFor)
	return post, nil
}

func (s *scheduledPostService) checkContent(platform, content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content is empty", ErrInvalidPost)
	}
	if limit := contentLimits[platform]; utf8.RuneCountInString(content) > limit {
		return fmt.Errorf("%w: %s content is limited to %d characters", ErrInvalidPost, platform, limit)
	}
	return nil
}

func (s *scheduledPostService) checkSchedule(at time.Time) error {
	if at.IsZero() {
		return fmt.Errorf("%w: scheduledFor is required", ErrInvalidPost)
	}
	if at.Before(s.nowFn().Add(-scheduleGrace)) {
		return fmt.Errorf("%w: scheduledFor is in the past", ErrInvalidPost)
	}
	return nil
}

func (s *scheduledPostService) saveFile(ctx context.Context, userID string, file *multipart.FileHeader) (*models.MediaAsset, error) {
	if file.Size > s.maxBytes {
		return nil, fmt.Errorf("%w: file is larger than %d bytes", ErrInvalidPost, s.maxBytes)
	}

	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return nil, fmt.Errorf("%w: unsupported file type", ErrInvalidPost)
	}
	if _, ok := allowedImageTypes[kind.Extension]; !ok {
		return nil, fmt.Errorf("%w: file type %s is not allowed", ErrInvalidPost, kind.Extension)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	key := id + "." + kind.Extension

	fileURL, err := s.storage.Upload(ctx, key, data, kind.MIME.Value)
	if err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}

	asset := &models.MediaAsset{
		ID:       id,
		UserID:   userID,
		FileName: file.Filename,
		FileType: kind.MIME.Value,
		FileSize: int64(len(data)),
		FileURL:  fileURL,
	}
	if err := s.ma.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("save media asset: %w", err)
	}

	return asset, nil
}

func (s *scheduledPostService) List(ctx context.Context, userID, status string) ([]*models.ScheduledPost, error) {
	switch status {
	case "", models.PostStatusPending, models.PostStatusPosted, models.PostStatusFailed:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidPost, status)
	}

	posts, err := s.sp.ListByUserID(ctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("list scheduled posts: %w", err)
	}
	return posts, nil
}

func (s *scheduledPostService) Get(ctx context.Context, userID, id string) (*models.ScheduledPost, error) {
	post, err := s.sp.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get scheduled post: %w", err)
	}
	if post == nil || post.UserID != userID {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *scheduledPostService) Update(ctx context.Context, userID, id string, in *transfer.ScheduledPostUpdate) (*models.ScheduledPost, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: empty request", ErrInvalidPost)
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPost, err)
	}

	post, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostStatusPending {
		return nil, ErrPostNotEditable
	}

	if in.Content != nil {
		if err := s.checkContent(post.Platform, *in.Content); err != nil {
			return nil, err
		}
		post.Content = *in.Content
	}
	if in.ScheduledFor != nil {
		if err := s.checkSchedule(*in.ScheduledFor); err != nil {
			return nil, err
		}
		post.ScheduledFor = in.ScheduledFor.UTC()
	}
	if in.MediaURL != nil {
		if *in.MediaURL == "" {
			post.MediaURL = nil
		} else {
			post.MediaURL = in.MediaURL
		}
	}

	updated, err := s.sp.Update(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("update scheduled post: %w", err)
	}
	if !updated {
		// published or failed between the read and the write
		return nil, ErrPostNotEditable
	}
	return post, nil
}

func (s *scheduledPostService) Remove(ctx context.Context, userID, id string) error {
	removed, err := s.sp.Remove(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("remove scheduled post: %w", err)
	}
	if !removed {
		return ErrPostNotFound
	}
	return nil
}

func (s *scheduledPostService) History(ctx context.Context, userID, id string) ([]*models.PostingHistory, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}

	history, err := s.ph.ListByPostID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list posting history: %w", err)
	}
	return history, nil
}
