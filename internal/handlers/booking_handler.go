package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/services"
)

type bookingApplicationService interface {
	CreateBooking(ctx context.Context, ownerID int64, input services.CreateBookingInput) (*models.Booking, error)
	GetBooking(ctx context.Context, actorID, bookingID int64) (*models.BookingDetail, error)
	ListBookings(ctx context.Context, actorID int64, role, status, timeframe string) ([]models.BookingDetail, error)
	AcceptBooking(ctx context.Context, sitterID, bookingID int64) (*models.Booking, error)
	DeclineBooking(ctx context.Context, sitterID, bookingID int64, reason string) (*models.Booking, error)
	StartBooking(ctx context.Context, sitterID, bookingID int64) (*models.Booking, error)
	CompleteBooking(ctx context.Context, sitterID, bookingID int64) (*models.Booking, error)
	CancelBooking(ctx context.Context, actorID, bookingID int64, reason string) (*models.Booking, error)
}

type BookingHandler struct {
	service bookingApplicationService
}

func NewBookingHandler(service *services.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

type createBookingRequest struct {
	SitterID    int64   `json:"sitter_id"`
	PetID       int64   `json:"pet_id"`
	ServiceType string  `json:"service_type"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Location    *string `json:"location"`
	Notes       *string `json:"notes"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "owner"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	ownerID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	startTime, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start_time must be a valid RFC3339 timestamp"})
	}
	endTime, err := time.Parse(time.RFC3339, strings.TrimSpace(req.EndTime))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end_time must be a valid RFC3339 timestamp"})
	}

	booking, err := h.service.CreateBooking(c.Context(), ownerID, services.CreateBookingInput{
		SitterID:    req.SitterID,
		PetID:       req.PetID,
		ServiceType: strings.TrimSpace(req.ServiceType),
		StartTime:   startTime,
		EndTime:     endTime,
		Location:    req.Location,
		Notes:       req.Notes,
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) ListBookings(c *fiber.Ctx) error {
	role, ok := requireRole(c, "owner", "sitter")
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	timeframe := strings.TrimSpace(c.Query("timeframe"))
	if timeframe != "" && timeframe != "upcoming" && timeframe != "past" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "timeframe must be upcoming or past"})
	}

	bookings, err := h.service.ListBookings(c.Context(), userID, role, strings.TrimSpace(c.Query("status")), timeframe)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"bookings": bookings})
}

func (h *BookingHandler) GetBooking(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	bookingID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	booking, err := h.service.GetBooking(c.Context(), userID, bookingID)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) AcceptBooking(c *fiber.Ctx) error {
	return h.sitterTransition(c, h.service.AcceptBooking)
}

func (h *BookingHandler) StartBooking(c *fiber.Ctx) error {
	return h.sitterTransition(c, h.service.StartBooking)
}

func (h *BookingHandler) CompleteBooking(c *fiber.Ctx) error {
	return h.sitterTransition(c, h.service.CompleteBooking)
}

func (h *BookingHandler) sitterTransition(c *fiber.Ctx, apply func(ctx context.Context, sitterID, bookingID int64) (*models.Booking, error)) error {
	if _, ok := requireRole(c, "sitter"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	sitterID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	bookingID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	booking, err := apply(c.Context(), sitterID, bookingID)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) DeclineBooking(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "sitter"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	sitterID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	bookingID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	var req cancelBookingRequest
	_ = c.BodyParser(&req)

	booking, err := h.service.DeclineBooking(c.Context(), sitterID, bookingID, strings.TrimSpace(req.Reason))
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) CancelBooking(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	bookingID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	var req cancelBookingRequest
	_ = c.BodyParser(&req)

	booking, err := h.service.CancelBooking(c.Context(), userID, bookingID, strings.TrimSpace(req.Reason))
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"booking": booking})
}

func mapBookingError(c *fiber.Ctx, err error) error {
	return mapServiceError(c, err, "Booking not found")
}
