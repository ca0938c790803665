package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

func (q *Queue) HandlePublishTickTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishTickPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode tick payload: %v: %w", err, asynq.SkipRetry)
	}

	summary, err := q.runner.Run(ctx)
	if err != nil {
		return err
	}

	slog.Debug("publish tick task done",
		"triggered_at", time.Unix(payload.TriggeredAt, 0).UTC(),
		"processed", summary.Processed)
	return nil
}
