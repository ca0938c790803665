package queue

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// EnqueueTick schedules a publishing tick. Ticks are never retried; the
// next scheduled tick picks up whatever is still pending.
func EnqueueTick(asynqClient *asynq.Client, now time.Time, timeout time.Duration) error {
	taskPayload, err := json.Marshal(PublishTickPayload{TriggeredAt: now.Unix()})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishTick, taskPayload)

	info, err := asynqClient.Enqueue(task, asynq.MaxRetry(0), asynq.Timeout(timeout))
	if err != nil {
		return err
	}

	slog.Debug("publish tick enqueued", "task_id", info.ID)
	return nil
}
