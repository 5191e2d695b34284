package handlers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/repository"
	"github.com/aliattia10/paseo-backend/internal/services"
)

const maxPetPhotoSizeBytes = 5 * 1024 * 1024

var petValidate = validator.New()

type PetHandler struct {
	petRepo        *repository.PetRepository
	storageService services.StorageService
}

func NewPetHandler(petRepo *repository.PetRepository, storageService services.StorageService) *PetHandler {
	return &PetHandler{
		petRepo:        petRepo,
		storageService: storageService,
	}
}

type createPetRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=60"`
	Species  string  `json:"species" validate:"required,oneof=dog cat rabbit bird other"`
	Breed    *string `json:"breed" validate:"omitempty,max=60"`
	AgeYears *int    `json:"age_years" validate:"omitempty,gte=0,lte=40"`
	Size     *string `json:"size" validate:"omitempty,oneof=small medium large"`
	Notes    *string `json:"notes" validate:"omitempty,max=2000"`
}

type updatePetRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=60"`
	Breed    *string `json:"breed" validate:"omitempty,max=60"`
	AgeYears *int    `json:"age_years" validate:"omitempty,gte=0,lte=40"`
	Size     *string `json:"size" validate:"omitempty,oneof=small medium large"`
	Notes    *string `json:"notes" validate:"omitempty,max=2000"`
}

func (h *PetHandler) CreatePet(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "owner"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	ownerID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createPetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Species = strings.ToLower(strings.TrimSpace(req.Species))
	if err := petValidate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessage(err)})
	}

	pet, err := h.petRepo.Create(c.Context(), repository.CreatePetInput{
		OwnerID:  ownerID,
		Name:     req.Name,
		Species:  req.Species,
		Breed:    req.Breed,
		AgeYears: req.AgeYears,
		Size:     req.Size,
		Notes:    req.Notes,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create pet"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"pet": pet})
}

func (h *PetHandler) ListPets(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "owner"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	ownerID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	pets, err := h.petRepo.ListByOwnerID(c.Context(), ownerID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load pets"})
	}
	return c.JSON(fiber.Map{"pets": pets})
}

func (h *PetHandler) UpdatePet(c *fiber.Ctx) error {
	pet, errResp := h.loadOwnedPet(c)
	if pet == nil {
		return errResp
	}

	var req updatePetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := petValidate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessage(err)})
	}

	updated, err := h.petRepo.UpdatePartial(c.Context(), pet.ID, repository.UpdatePetInput{
		Name:     req.Name,
		Breed:    req.Breed,
		AgeYears: req.AgeYears,
		Size:     req.Size,
		Notes:    req.Notes,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update pet"})
	}
	return c.JSON(fiber.Map{"pet": updated})
}

func (h *PetHandler) DeletePet(c *fiber.Ctx) error {
	pet, errResp := h.loadOwnedPet(c)
	if pet == nil {
		return errResp
	}

	if pet.PhotoURL != nil && *pet.PhotoURL != "" && h.storageService != nil {
		_ = h.storageService.DeleteFile(c.Context(), *pet.PhotoURL)
	}
	if err := h.petRepo.Delete(c.Context(), pet.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete pet"})
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *PetHandler) UploadPetPhoto(c *fiber.Ctx) error {
	pet, errResp := h.loadOwnedPet(c)
	if pet == nil {
		return errResp
	}
	if h.storageService == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Storage service is not configured"})
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "photo file is required"})
	}
	if fileHeader.Size <= 0 || fileHeader.Size > maxPetPhotoSizeBytes {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "photo must be between 1 byte and 5MB"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open photo file"})
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "photo must be a jpg, jpeg, png, or webp file"})
	}

	filename := fmt.Sprintf("%d-%d%s", pet.ID, time.Now().UnixNano(), ext)
	photoURL, err := h.storageService.UploadFile(c.Context(), file, filename, "pets/photos")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload photo"})
	}

	if pet.PhotoURL != nil && *pet.PhotoURL != "" && *pet.PhotoURL != photoURL {
		_ = h.storageService.DeleteFile(c.Context(), *pet.PhotoURL)
	}

	updated, err := h.petRepo.UpdatePartial(c.Context(), pet.ID, repository.UpdatePetInput{PhotoURL: &photoURL})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update pet"})
	}

	return c.JSON(fiber.Map{
		"photo_url": photoURL,
		"pet":       updated,
	})
}

// loadOwnedPet resolves the :id param to a pet owned by the caller. On
// failure the fiber error response has already been written; the caller just
// returns it.
func (h *PetHandler) loadOwnedPet(c *fiber.Ctx) (pet *models.Pet, errResp error) {
	if _, ok := requireRole(c, "owner"); !ok {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	ownerID, err := parseUserID(c)
	if err != nil {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	petID, err := parseIDParam(c, "id")
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid pet id"})
	}

	found, err := h.petRepo.GetByID(c.Context(), petID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Pet not found"})
		}
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load pet"})
	}
	if found.OwnerID != ownerID {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	return found, nil
}

func validationMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		first := validationErrs[0]
		return fmt.Sprintf("%s failed validation on %s", strings.ToLower(first.Field()), first.Tag())
	}
	return "Invalid request body"
}
