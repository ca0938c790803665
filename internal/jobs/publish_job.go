package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/mailtosocial/internal/metrics"
	"github.com/maheshrc27/mailtosocial/internal/models"
	"github.com/maheshrc27/mailtosocial/internal/repository"
	"github.com/maheshrc27/mailtosocial/internal/service"
	"github.com/maheshrc27/mailtosocial/internal/transfer"
)

// PublishJob runs one publishing tick: every pending post that is due is
// published once and moved to posted or failed.
//
// Due posts are read without claiming them. Two ticks that overlap can
// both read the same row and publish it twice; only the status write-back
// is guarded, so the second write is dropped.
type PublishJob struct {
	sp         repository.ScheduledPostRepository
	ph         repository.PostingHistoryRepository
	cs         service.CredentialService
	publishers map[string]service.Publisher
	rowTimeout time.Duration
	nowFn      func() time.Time
}

func NewPublishJob(
	sp repository.ScheduledPostRepository,
	ph repository.PostingHistoryRepository,
	cs service.CredentialService,
	publishers map[string]service.Publisher,
	rowTimeout time.Duration) *PublishJob {
	return &PublishJob{
		sp:         sp,
		ph:         ph,
		cs:         cs,
		publishers: publishers,
		rowTimeout: rowTimeout,
		nowFn:      time.Now,
	}
}

// Run processes due posts sequentially. Row failures are recorded on the
// row; only a failure to list due posts is returned.
func (j *PublishJob) Run(ctx context.Context) (*transfer.TickSummary, error) {
	start := time.Now()
	metrics.PublishTicks.Inc()
	defer metrics.ObserveTickDuration(start)

	posts, err := j.sp.ListDue(ctx, j.nowFn())
	if err != nil {
		metrics.TickErrors.Inc()
		slog.Error("publish tick: list due posts", "error", err)
		return nil, fmt.Errorf("list due posts: %w", err)
	}

	summary := &transfer.TickSummary{}
	for _, post := range posts {
		summary.Processed++
		if j.processPost(ctx, post) {
			summary.Posted++
		} else {
			summary.Failed++
		}
	}

	if summary.Processed > 0 {
		slog.Info("publish tick finished",
			"processed", summary.Processed,
			"posted", summary.Posted,
			"failed", summary.Failed,
			"duration", time.Since(start))
	}
	return summary, nil
}

func (j *PublishJob) processPost(ctx context.Context, post *models.ScheduledPost) bool {
	result, err := j.publish(ctx, post)
	if err != nil {
		slog.Warn("scheduled post failed", "id", post.ID, "platform", post.Platform, "error", err)
		metrics.IncFailed(post.Platform)
		j.recordHistory(ctx, post, nil, err)

		updated, werr := j.sp.MarkFailed(ctx, post.ID, err.Error())
		j.logWriteBack(post, models.PostStatusFailed, updated, werr)
		return false
	}

	slog.Info("scheduled post published", "id", post.ID, "platform", post.Platform,
		"platform_post_id", result.ID, "has_media", result.HasMedia)
	metrics.IncPublished(post.Platform)
	j.recordHistory(ctx, post, result, nil)

	updated, werr := j.sp.MarkPosted(ctx, post.ID, result.ID)
	j.logWriteBack(post, models.PostStatusPosted, updated, werr)
	return true
}

func (j *PublishJob) publish(ctx context.Context, post *models.ScheduledPost) (result *service.PublishResult, err error) {
	ctx, cancel := context.WithTimeout(ctx, j.rowTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("publisher panic: %v", r)
		}
	}()

	cred, err := j.cs.Resolve(ctx, post.UserID, post.Platform)
	if err != nil {
		return nil, err
	}

	publisher, ok := j.publishers[post.Platform]
	if !ok {
		return nil, fmt.Errorf("%w: %q", service.ErrUnsupportedPlatform, post.Platform)
	}

	req := service.PublishRequest{
		UserID:     post.UserID,
		Content:    post.Content,
		Credential: cred,
	}
	if post.MediaURL != nil {
		req.MediaURL = *post.MediaURL
	}

	return publisher.Publish(ctx, req)
}

func (j *PublishJob) recordHistory(ctx context.Context, post *models.ScheduledPost, result *service.PublishResult, pubErr error) {
	ph := &models.PostingHistory{
		PostID:   post.ID,
		UserID:   post.UserID,
		Platform: post.Platform,
	}
	if result != nil {
		ph.PlatformPostID = result.ID
		ph.HasMedia = result.HasMedia
	}
	if pubErr != nil {
		ph.ErrorMessage = pubErr.Error()
	}

	if _, err := j.ph.Create(ctx, ph); err != nil {
		slog.Error("save posting history", "id", post.ID, "error", err)
	}
}

func (j *PublishJob) logWriteBack(post *models.ScheduledPost, status string, updated bool, err error) {
	switch {
	case err != nil:
		slog.Error("write back post status", "id", post.ID, "status", status, "error", err)
	case !updated:
		slog.Warn("post already left pending, status not written", "id", post.ID, "status", status)
	}
}
