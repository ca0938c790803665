package handlers

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/mailtosocial/internal/models"
	"github.com/maheshrc27/mailtosocial/internal/service"
	"github.com/maheshrc27/mailtosocial/internal/transfer"
)

// RelayHandler is the signing relay: callers send user tokens, the relay
// adds the app credentials and publishes directly.
type RelayHandler struct {
	twitter  service.Publisher
	linkedIn service.Publisher
	validate *validator.Validate
}

func NewRelayHandler(twitter, linkedIn service.Publisher) *RelayHandler {
	return &RelayHandler{twitter: twitter, linkedIn: linkedIn, validate: validator.New()}
}

func (h *RelayHandler) PublishTwitter(c *fiber.Ctx) error {
	var in transfer.TwitterRelayRequest
	if msg := h.parse(c, &in); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(transfer.RelayErrorResponse{Error: msg})
	}

	result, err := h.twitter.Publish(c.Context(), service.PublishRequest{
		Content:  in.Content,
		MediaURL: in.MediaURL,
		Credential: &service.Credential{
			Platform:    models.PlatformTwitter,
			AccessToken: in.OAuthToken,
			TokenSecret: in.OAuthTokenSecret,
		},
	})
	if err != nil {
		return relayError(c, models.PlatformTwitter, err)
	}

	return c.JSON(transfer.TwitterRelayResponse{Success: true, TweetID: result.ID, HasMedia: result.HasMedia})
}

func (h *RelayHandler) PublishLinkedIn(c *fiber.Ctx) error {
	var in transfer.LinkedInRelayRequest
	if msg := h.parse(c, &in); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(transfer.RelayErrorResponse{Error: msg})
	}

	result, err := h.linkedIn.Publish(c.Context(), service.PublishRequest{
		Content:  in.Content,
		MediaURL: in.MediaURL,
		Credential: &service.Credential{
			Platform:    models.PlatformLinkedIn,
			AccessToken: in.AccessToken,
			ProfileID:   in.UserID,
		},
	})
	if err != nil {
		return relayError(c, models.PlatformLinkedIn, err)
	}

	return c.JSON(transfer.LinkedInRelayResponse{Success: true, PostID: result.ID, HasMedia: result.HasMedia})
}

func (h *RelayHandler) parse(c *fiber.Ctx, in any) string {
	if err := c.BodyParser(in); err != nil {
		return "Unable to parse request body"
	}
	if err := h.validate.Struct(in); err != nil {
		return err.Error()
	}
	return ""
}

func relayError(c *fiber.Ctx, platform string, err error) error {
	slog.Warn("relay publish failed", "platform", platform, "error", err)

	resp := transfer.RelayErrorResponse{Error: err.Error()}
	var pubErr *service.PublishError
	if errors.As(err, &pubErr) {
		resp.Details = map[string]any{
			"status": pubErr.StatusCode,
			"body":   pubErr.Body,
		}
		if pubErr.FallbackStatus != 0 {
			resp.Details["fallbackStatus"] = pubErr.FallbackStatus
			resp.Details["fallbackBody"] = pubErr.FallbackBody
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(resp)
}
