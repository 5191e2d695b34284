package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/services"
)

type reviewApplicationService interface {
	CreateReview(ctx context.Context, authorID int64, input services.CreateReviewInput) (*models.Review, error)
	ListForSitter(ctx context.Context, sitterID int64, limit, offset int) ([]models.Review, error)
}

type ReviewHandler struct {
	service reviewApplicationService
}

func NewReviewHandler(service *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

type createReviewRequest struct {
	BookingID int64   `json:"booking_id"`
	Rating    int     `json:"rating"`
	Comment   *string `json:"comment"`
}

func (h *ReviewHandler) CreateReview(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "owner"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	review, err := h.service.CreateReview(c.Context(), userID, services.CreateReviewInput{
		BookingID: req.BookingID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		return mapReviewError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"review": review})
}

func (h *ReviewHandler) ListSitterReviews(c *fiber.Ctx) error {
	sitterID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid sitter id"})
	}

	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	reviews, err := h.service.ListForSitter(c.Context(), sitterID, limit, offset)
	if err != nil {
		return mapReviewError(c, err)
	}

	return c.JSON(fiber.Map{"reviews": reviews})
}

func mapReviewError(c *fiber.Ctx, err error) error {
	return mapServiceError(c, err, "Booking not found")
}
