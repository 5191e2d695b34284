package handlers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/aliattia10/paseo-backend/internal/repository"
	"github.com/aliattia10/paseo-backend/internal/services"
)

const maxAvatarSizeBytes = 5 * 1024 * 1024

type ProfileHandler struct {
	ownerRepo      *repository.OwnerProfileRepository
	sitterRepo     *repository.SitterProfileRepository
	storageService services.StorageService
}

func NewProfileHandler(
	ownerRepo *repository.OwnerProfileRepository,
	sitterRepo *repository.SitterProfileRepository,
	storageService services.StorageService,
) *ProfileHandler {
	return &ProfileHandler{
		ownerRepo:      ownerRepo,
		sitterRepo:     sitterRepo,
		storageService: storageService,
	}
}

type ownerOnboardingRequest struct {
	FullName string  `json:"full_name"`
	Phone    string  `json:"phone"`
	City     string  `json:"city"`
	Bio      *string `json:"bio"`
}

type sitterOnboardingRequest struct {
	FullName        string   `json:"full_name"`
	Bio             string   `json:"bio"`
	City            string   `json:"city"`
	Services        []string `json:"services"`
	AcceptedPets    []string `json:"accepted_pets"`
	HourlyRateCents int64    `json:"hourly_rate_cents"`
}

type updateOwnerProfileRequest struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	City     *string `json:"city"`
	Bio      *string `json:"bio"`
}

type updateSitterProfileRequest struct {
	FullName        *string   `json:"full_name"`
	Bio             *string   `json:"bio"`
	City            *string   `json:"city"`
	Services        *[]string `json:"services"`
	AcceptedPets    *[]string `json:"accepted_pets"`
	HourlyRateCents *int64    `json:"hourly_rate_cents"`
}

func (h *ProfileHandler) GetOwnerProfile(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "owner"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	profile, err := h.ownerRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load profile"})
	}
	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ProfileHandler) GetSitterProfile(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "sitter"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	profile, err := h.sitterRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load profile"})
	}
	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ProfileHandler) CompleteOwnerOnboarding(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "owner"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req ownerOnboardingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.FullName) == "" || strings.TrimSpace(req.City) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "full_name and city are required"})
	}

	profile, err := h.ownerRepo.UpdateOnboarding(c.Context(), userID, repository.OwnerOnboardingInput{
		FullName: strings.TrimSpace(req.FullName),
		Phone:    strings.TrimSpace(req.Phone),
		City:     strings.TrimSpace(req.City),
		Bio:      req.Bio,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}
	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ProfileHandler) CompleteSitterOnboarding(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "sitter"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req sitterOnboardingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.FullName) == "" || strings.TrimSpace(req.City) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "full_name and city are required"})
	}
	if len(req.Services) == 0 || len(req.AcceptedPets) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "services and accepted_pets are required"})
	}
	for _, service := range req.Services {
		if service != "walk" && service != "care" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "services must be walk or care"})
		}
	}
	if req.HourlyRateCents <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "hourly_rate_cents must be greater than 0"})
	}

	profile, err := h.sitterRepo.UpdateOnboarding(c.Context(), userID, repository.SitterOnboardingInput{
		FullName:        strings.TrimSpace(req.FullName),
		Bio:             strings.TrimSpace(req.Bio),
		City:            strings.TrimSpace(req.City),
		Services:        req.Services,
		AcceptedPets:    req.AcceptedPets,
		HourlyRateCents: req.HourlyRateCents,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}
	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ProfileHandler) UpdateOwnerProfile(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "owner"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req updateOwnerProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	profile, err := h.ownerRepo.UpdatePartial(c.Context(), userID, repository.UpdateOwnerProfileInput{
		FullName: req.FullName,
		Phone:    req.Phone,
		City:     req.City,
		Bio:      req.Bio,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}
	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ProfileHandler) UpdateSitterProfile(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "sitter"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req updateSitterProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.HourlyRateCents != nil && *req.HourlyRateCents <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "hourly_rate_cents must be greater than 0"})
	}

	profile, err := h.sitterRepo.UpdatePartial(c.Context(), userID, repository.UpdateSitterProfileInput{
		FullName:        req.FullName,
		Bio:             req.Bio,
		City:            req.City,
		Services:        req.Services,
		AcceptedPets:    req.AcceptedPets,
		HourlyRateCents: req.HourlyRateCents,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}
	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ProfileHandler) UploadOwnerAvatar(c *fiber.Ctx) error {
	return h.uploadAvatar(c, "owner")
}

func (h *ProfileHandler) UploadSitterAvatar(c *fiber.Ctx) error {
	return h.uploadAvatar(c, "sitter")
}

func (h *ProfileHandler) uploadAvatar(c *fiber.Ctx, expectedRole string) error {
	if _, ok := requireRole(c, expectedRole); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	if h.storageService == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Storage service is not configured"})
	}
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar file is required"})
	}
	if fileHeader.Size <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar file is empty"})
	}
	if fileHeader.Size > maxAvatarSizeBytes {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar file exceeds 5MB limit"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open avatar file"})
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar must be a jpg, jpeg, png, or webp file"})
	}

	filename := fmt.Sprintf("%d-%d%s", userID, time.Now().UnixNano(), ext)
	folder := expectedRole + "s/avatars"
	avatarURL, err := h.storageService.UploadFile(c.Context(), file, filename, folder)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload avatar"})
	}

	var profile any
	if expectedRole == "owner" {
		current, err := h.ownerRepo.GetByUserID(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
		}
		if current.AvatarURL != nil && *current.AvatarURL != "" && *current.AvatarURL != avatarURL {
			_ = h.storageService.DeleteFile(c.Context(), *current.AvatarURL)
		}
		profile, err = h.ownerRepo.UpdatePartial(c.Context(), userID, repository.UpdateOwnerProfileInput{AvatarURL: &avatarURL})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
		}
	} else {
		current, err := h.sitterRepo.GetByUserID(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
		}
		if current.AvatarURL != nil && *current.AvatarURL != "" && *current.AvatarURL != avatarURL {
			_ = h.storageService.DeleteFile(c.Context(), *current.AvatarURL)
		}
		profile, err = h.sitterRepo.UpdatePartial(c.Context(), userID, repository.UpdateSitterProfileInput{AvatarURL: &avatarURL})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
		}
	}

	return c.JSON(fiber.Map{
		"avatar_url": avatarURL,
		"profile":    profile,
	})
}
