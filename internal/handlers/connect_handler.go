package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/payments"
	"github.com/aliattia10/paseo-backend/internal/services"
)

type connectApplicationService interface {
	CreateAccount(ctx context.Context, userID int64) (*models.StripeConnectAccount, error)
	CreateOnboardingLink(ctx context.Context, userID int64, returnURL, refreshURL string) (*payments.OnboardingLink, error)
	GetStatus(ctx context.Context, userID int64) (*models.StripeConnectAccount, error)
}

type ConnectHandler struct {
	service connectApplicationService
}

func NewConnectHandler(service *services.ConnectService) *ConnectHandler {
	return &ConnectHandler{service: service}
}

func (h *ConnectHandler) CreateAccount(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "sitter"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	account, err := h.service.CreateAccount(c.Context(), userID)
	if err != nil {
		return mapConnectError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"account": account})
}

type onboardingLinkRequest struct {
	ReturnURL  string `json:"return_url"`
	RefreshURL string `json:"refresh_url"`
}

func (h *ConnectHandler) CreateOnboardingLink(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "sitter"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	// Body is optional; empty overrides fall back to the configured URLs.
	var req onboardingLinkRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	link, err := h.service.CreateOnboardingLink(c.Context(), userID, req.ReturnURL, req.RefreshURL)
	if err != nil {
		return mapConnectError(c, err)
	}

	return c.JSON(fiber.Map{
		"url":        link.URL,
		"expires_at": link.ExpiresAt,
	})
}

func (h *ConnectHandler) GetStatus(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "sitter"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	account, err := h.service.GetStatus(c.Context(), userID)
	if err != nil {
		return mapConnectError(c, err)
	}

	return c.JSON(fiber.Map{"account": account})
}

func mapConnectError(c *fiber.Ctx, err error) error {
	return mapServiceError(c, err, "Connect account not found")
}
