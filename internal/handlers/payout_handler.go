package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/services"
)

type payoutApplicationService interface {
	Balance(ctx context.Context, sitterID int64) (*services.BalanceResult, error)
	RequestPayout(ctx context.Context, sitterID int64, input services.RequestPayoutInput) (*models.PayoutRequest, error)
	ListRequests(ctx context.Context, sitterID int64) ([]models.PayoutRequest, error)
	UpdateStatus(ctx context.Context, requestID int64, nextStatus string) (*models.PayoutRequest, error)
}

type PayoutHandler struct {
	service payoutApplicationService
}

func NewPayoutHandler(service *services.PayoutService) *PayoutHandler {
	return &PayoutHandler{service: service}
}

type requestPayoutRequest struct {
	AmountCents   int64  `json:"amount_cents"`
	PayoutMethod  string `json:"payout_method"`
	PayoutDetails string `json:"payout_details"`
}

func (h *PayoutHandler) GetBalance(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "sitter"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	sitterID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	balance, err := h.service.Balance(c.Context(), sitterID)
	if err != nil {
		return mapPayoutError(c, err)
	}

	return c.JSON(fiber.Map{"balance": balance})
}

func (h *PayoutHandler) RequestPayout(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "sitter"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	sitterID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req requestPayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	request, err := h.service.RequestPayout(c.Context(), sitterID, services.RequestPayoutInput{
		AmountCents:   req.AmountCents,
		PayoutMethod:  strings.TrimSpace(req.PayoutMethod),
		PayoutDetails: strings.TrimSpace(req.PayoutDetails),
	})
	if err != nil {
		return mapPayoutError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"payout_request": request})
}

func (h *PayoutHandler) ListRequests(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "sitter"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	sitterID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	requests, err := h.service.ListRequests(c.Context(), sitterID)
	if err != nil {
		return mapPayoutError(c, err)
	}

	return c.JSON(fiber.Map{"payout_requests": requests})
}

type updatePayoutStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus backs the operations dashboard. Flipping the status never
// moves money, it only records where the request is in the queue.
func (h *PayoutHandler) UpdateStatus(c *fiber.Ctx) error {
	requestID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payout request id"})
	}

	var req updatePayoutStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	request, err := h.service.UpdateStatus(c.Context(), requestID, strings.TrimSpace(req.Status))
	if err != nil {
		return mapPayoutError(c, err)
	}

	return c.JSON(fiber.Map{"payout_request": request})
}

func mapPayoutError(c *fiber.Ctx, err error) error {
	return mapServiceError(c, err, "Payout request not found")
}
