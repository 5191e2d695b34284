package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/services"
)

type paymentApplicationService interface {
	CreateIntent(ctx context.Context, ownerID, bookingID int64) (*services.PaymentIntentResult, error)
	CapturePayment(ctx context.Context, ownerID, bookingID int64) (*models.Booking, error)
	RefundBooking(ctx context.Context, ownerID, bookingID int64, reason string) (*models.Booking, error)
	ReleaseEligible(ctx context.Context) (*services.ReleaseBatchResult, error)
}

type PaymentHandler struct {
	service paymentApplicationService
}

func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

type refundRequest struct {
	Reason string `json:"reason"`
}

// CreateIntent opens the payment for an accepted booking and returns the
// client secret the app needs to collect the charge.
func (h *PaymentHandler) CreateIntent(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "owner"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	ownerID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	bookingID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	result, err := h.service.CreateIntent(c.Context(), ownerID, bookingID)
	if err != nil {
		return mapPaymentError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"payment": result})
}

// CapturePayment confirms the charge went through and moves the escrow to
// held.
func (h *PaymentHandler) CapturePayment(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "owner"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	ownerID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	bookingID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	booking, err := h.service.CapturePayment(c.Context(), ownerID, bookingID)
	if err != nil {
		return mapPaymentError(c, err)
	}

	return c.JSON(fiber.Map{"booking": booking})
}

func (h *PaymentHandler) RefundBooking(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "owner"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	ownerID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	bookingID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	// Body is optional; the reason may be omitted entirely.
	var req refundRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	booking, err := h.service.RefundBooking(c.Context(), ownerID, bookingID, strings.TrimSpace(req.Reason))
	if err != nil {
		return mapPaymentError(c, err)
	}

	return c.JSON(fiber.Map{"booking": booking})
}

// ReleaseEligible triggers the same sweep the hourly job runs. Per-booking
// failures land in the result body, so the response is always 200.
func (h *PaymentHandler) ReleaseEligible(c *fiber.Ctx) error {
	result, err := h.service.ReleaseEligible(c.Context())
	if err != nil {
		return mapPaymentError(c, err)
	}
	return c.JSON(result)
}

func mapPaymentError(c *fiber.Ctx, err error) error {
	return mapServiceError(c, err, "Booking not found")
}
