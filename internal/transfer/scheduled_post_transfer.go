package transfer

import "time"

type ScheduledPostCreation struct {
	Content      string    `json:"content" form:"content" validate:"required,max=3000"`
	Platform     string    `json:"platform" form:"platform" validate:"required,oneof=twitter linkedin"`
	ScheduledFor time.Time `json:"scheduledFor" form:"scheduledFor" validate:"required"`
	MediaURL     string    `json:"mediaUrl,omitempty" form:"mediaUrl" validate:"omitempty,url"`
}

type ScheduledPostUpdate struct {
	Content      *string    `json:"content,omitempty" validate:"omitempty,min=1,max=3000"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
	MediaURL     *string    `json:"mediaUrl,omitempty" validate:"omitempty,url"`
}

// TickSummary is returned to whatever triggered a publishing tick.
type TickSummary struct {
	Processed int `json:"processed"`
	Posted    int `json:"posted"`
	Failed    int `json:"failed"`
}
