package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/aliattia10/paseo-backend/internal/payments"
	"github.com/aliattia10/paseo-backend/internal/services"
)

func parseUserID(c *fiber.Ctx) (int64, error) {
	raw, ok := c.Locals("user_id").(string)
	if !ok {
		return 0, errors.New("missing user id")
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, errors.New("invalid user id")
	}
	return userID, nil
}

func parseIDParam(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func requireRole(c *fiber.Ctx, allowed ...string) (string, bool) {
	role, ok := c.Locals("role").(string)
	if !ok {
		return "", false
	}
	for _, candidate := range allowed {
		if role == candidate {
			return role, true
		}
	}
	return role, false
}

func mapServiceError(c *fiber.Ctx, err error, notFoundMessage string) error {
	var processorErr *payments.ProcessorError
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &processorErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": processorErr.Message})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Conflict"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrPayoutsNotEnabled):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Payouts are not enabled for this account"})
	case errors.Is(err, services.ErrInsufficientBalance):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Insufficient balance"})
	case errors.Is(err, services.ErrSitterNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Sitter not found"})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": notFoundMessage})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}
