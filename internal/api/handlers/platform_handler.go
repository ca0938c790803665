package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/mailtosocial/configs"
	"github.com/maheshrc27/mailtosocial/internal/models"
	"github.com/maheshrc27/mailtosocial/internal/service"
	"github.com/maheshrc27/mailtosocial/pkg/utils"
)

type PlatformHandler struct {
	ps  service.PlatformService
	cfg config.Config
}

func NewPlatformHandler(ps service.PlatformService, cfg config.Config) *PlatformHandler {
	return &PlatformHandler{ps: ps, cfg: cfg}
}

// AddSocialAccount starts a connect flow. The browser is redirected here,
// so the session comes from the cookie or a state query parameter holding
// the session token.
func (h *PlatformHandler) AddSocialAccount(c *fiber.Ctx) error {
	session := c.Cookies(h.cfg.CookieName)
	if session == "" {
		session = c.Query("state")
	}

	claims, err := utils.ValidateToken(h.cfg.SecretKey, session)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unable to validate user")
	}

	authURL, err := h.ps.AuthURL(c.Context(), c.Params("platform"), claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedPlatform) {
			return errorJSON(c, fiber.StatusNotFound, err.Error())
		}
		slog.Info("start connect flow", "platform", c.Params("platform"), "error", err)
		return errorJSON(c, fiber.StatusBadGateway, "Unable to start authorization")
	}

	return c.Redirect(authURL)
}

func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	platform := c.Params("platform")

	var err error
	switch platform {
	case models.PlatformLinkedIn:
		_, err = h.ps.LinkedInCallback(c.Context(), c.Query("code"), c.Query("state"))
	case models.PlatformTwitter:
		_, err = h.ps.TwitterCallback(c.Context(), c.Query("oauth_token"), c.Query("oauth_verifier"))
	default:
		return errorJSON(c, fiber.StatusNotFound, "unsupported platform")
	}

	if err != nil {
		slog.Info("connect callback failed", "platform", platform, "error", err)
		return errorJSON(c, fiber.StatusBadRequest, "something went wrong")
	}

	redirectURL := fmt.Sprintf("%s/dashboard/accounts", h.cfg.FrontendURL)
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) ListSocialAccounts(c *fiber.Ctx) error {
	accountList, err := h.ps.List(c.Context(), GetUserID(c))
	if err != nil {
		slog.Info(err.Error())
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to fetch social accounts")
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *PlatformHandler) DeleteSocialAccount(c *fiber.Ctx) error {
	err := h.ps.Delete(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			return errorJSON(c, fiber.StatusNotFound, err.Error())
		}
		return errorJSON(c, fiber.StatusInternalServerError, "Unable to delete social account")
	}

	return c.SendStatus(fiber.StatusNoContent)
}
