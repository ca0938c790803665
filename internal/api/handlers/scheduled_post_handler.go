package handlers

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/mailtosocial/internal/service"
	"github.com/maheshrc27/mailtosocial/internal/transfer"
)

type ScheduledPostHandler struct {
	s service.ScheduledPostService
}

func NewScheduledPostHandler(service service.ScheduledPostService) *ScheduledPostHandler {
	return &ScheduledPostHandler{s: service}
}

// CreatePost accepts JSON, or a multipart form with an optional image in
// the "file" field.
func (h *ScheduledPostHandler) CreatePost(c *fiber.Ctx) error {
	var in transfer.ScheduledPostCreation
	var file *multipart.FileHeader

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		scheduledFor, err := time.Parse(time.RFC3339, c.FormValue("scheduledFor"))
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "scheduledFor must be an RFC 3339 timestamp")
		}
		in = transfer.ScheduledPostCreation{
			Content:      c.FormValue("content"),
			Platform:     c.FormValue("platform"),
			ScheduledFor: scheduledFor,
			MediaURL:     c.FormValue("mediaUrl"),
		}
		if fh, err := c.FormFile("file"); err == nil {
			file = fh
		}
	} else if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Unable to parse request body")
	}

	post, err := h.s.Create(c.Context(), GetUserID(c), &in, file)
	if err != nil {
		return postError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *ScheduledPostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.List(c.Context(), GetUserID(c), c.Query("status"))
	if err != nil {
		return postError(c, err)
	}
	if posts == nil {
		return c.JSON([]any{})
	}
	return c.JSON(posts)
}

func (h *ScheduledPostHandler) GetPost(c *fiber.Ctx) error {
	post, err := h.s.Get(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return postError(c, err)
	}
	return c.JSON(post)
}

func (h *ScheduledPostHandler) UpdatePost(c *fiber.Ctx) error {
	var in transfer.ScheduledPostUpdate
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Unable to parse request body")
	}

	post, err := h.s.Update(c.Context(), GetUserID(c), c.Params("id"), &in)
	if err != nil {
		return postError(c, err)
	}
	return c.JSON(post)
}

func (h *ScheduledPostHandler) RemovePost(c *fiber.Ctx) error {
	if err := h.s.Remove(c.Context(), GetUserID(c), c.Params("id")); err != nil {
		return postError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ScheduledPostHandler) PostHistory(c *fiber.Ctx) error {
	history, err := h.s.History(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return postError(c, err)
	}
	if history == nil {
		return c.JSON([]any{})
	}
	return c.JSON(history)
}

func postError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidPost):
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPostNotFound):
		return errorJSON(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPostNotEditable):
		return errorJSON(c, fiber.StatusConflict, err.Error())
	default:
		slog.Error("scheduled post request failed", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Unable to process scheduled post")
	}
}
