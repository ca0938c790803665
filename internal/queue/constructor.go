package queue

import (
	"context"

	"github.com/maheshrc27/mailtosocial/internal/transfer"
)

// TickRunner runs one publishing tick.
type TickRunner interface {
	Run(ctx context.Context) (*transfer.TickSummary, error)
}

type Queue struct {
	runner TickRunner
}

func NewQueue(runner TickRunner) *Queue {
	return &Queue{runner: runner}
}

const TaskTypePublishTick = "scheduled_post:tick"

type PublishTickPayload struct {
	TriggeredAt int64 `json:"triggered_at"`
}
