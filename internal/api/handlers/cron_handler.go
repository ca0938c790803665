package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/mailtosocial/internal/queue"
)

type CronHandler struct {
	runner queue.TickRunner
}

func NewCronHandler(runner queue.TickRunner) *CronHandler {
	return &CronHandler{runner: runner}
}

// RunScheduledPosts runs one publishing tick for an external scheduler.
func (h *CronHandler) RunScheduledPosts(c *fiber.Ctx) error {
	summary, err := h.runner.Run(c.UserContext())
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(summary)
}
