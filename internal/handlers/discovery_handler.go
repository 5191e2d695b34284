package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/repository"
	"github.com/aliattia10/paseo-backend/internal/services"
)

type sitterRecommender interface {
	GetMatchedSitters(ctx context.Context, criteria services.MatchCriteria, limit int) ([]models.SitterWithScore, error)
}

type conversationOpener interface {
	StartConversation(ctx context.Context, actorID, otherUserID int64) (*models.Conversation, error)
}

type DiscoveryHandler struct {
	sitterRepo    *repository.SitterProfileRepository
	petRepo       *repository.PetRepository
	ownerRepo     *repository.OwnerProfileRepository
	swipeRepo     *repository.SwipeRepository
	matchmaking   sitterRecommender
	conversations conversationOpener
}

func NewDiscoveryHandler(
	sitterRepo *repository.SitterProfileRepository,
	petRepo *repository.PetRepository,
	ownerRepo *repository.OwnerProfileRepository,
	swipeRepo *repository.SwipeRepository,
	matchmaking *services.MatchmakingService,
	conversations *services.ChatService,
) *DiscoveryHandler {
	return &DiscoveryHandler{
		sitterRepo:    sitterRepo,
		petRepo:       petRepo,
		ownerRepo:     ownerRepo,
		swipeRepo:     swipeRepo,
		matchmaking:   matchmaking,
		conversations: conversations,
	}
}

func (h *DiscoveryHandler) ListSitters(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	maxRate := int64(c.QueryInt("max_rate_cents", 0))
	if maxRate < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "max_rate_cents must not be negative"})
	}

	sitters, total, err := h.sitterRepo.List(c.Context(), repository.SitterListFilter{
		City:    strings.TrimSpace(c.Query("city")),
		Service: strings.TrimSpace(c.Query("service")),
		Species: strings.TrimSpace(c.Query("species")),
		MaxRate: maxRate,
		Offset:  (page - 1) * limit,
		Limit:   limit,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load sitters"})
	}

	totalPages := (total + limit - 1) / limit
	return c.JSON(fiber.Map{
		"sitters": sitters,
		"pagination": models.PaginationMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

func (h *DiscoveryHandler) GetSitter(c *fiber.Ctx) error {
	sitterID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid sitter id"})
	}

	sitter, err := h.sitterRepo.GetByUserID(c.Context(), sitterID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Sitter not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load sitter"})
	}
	if !sitter.OnboardingComplete {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Sitter not found"})
	}
	return c.JSON(fiber.Map{"sitter": sitter})
}

// RecommendedSitters scores sitters against the owner's pets and city.
func (h *DiscoveryHandler) RecommendedSitters(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "owner"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	ownerID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > 50 {
		limit = 10
	}

	pets, err := h.petRepo.ListByOwnerID(c.Context(), ownerID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load pets"})
	}
	species := make([]string, 0, len(pets))
	for _, pet := range pets {
		species = append(species, pet.Species)
	}

	city := ""
	profile, err := h.ownerRepo.GetByUserID(c.Context(), ownerID)
	if err == nil && profile.City != nil {
		city = *profile.City
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load profile"})
	}

	sitters, err := h.matchmaking.GetMatchedSitters(c.Context(), services.MatchCriteria{
		City:        city,
		ServiceType: strings.TrimSpace(c.Query("service")),
		PetSpecies:  species,
		MaxRate:     int64(c.QueryInt("max_rate_cents", 0)),
	}, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load recommendations"})
	}

	return c.JSON(fiber.Map{"sitters": sitters})
}

type swipeRequest struct {
	SitterID int64 `json:"sitter_id"`
	Liked    bool  `json:"liked"`
}

func (h *DiscoveryHandler) Swipe(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "owner"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	ownerID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req swipeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.SitterID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "sitter_id is required"})
	}

	if _, err := h.sitterRepo.GetByUserID(c.Context(), req.SitterID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Sitter not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load sitter"})
	}

	swipe, err := h.swipeRepo.Upsert(c.Context(), ownerID, req.SitterID, req.Liked)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record swipe"})
	}

	// A like opens the chat between the two sides.
	if req.Liked {
		conversation, err := h.conversations.StartConversation(c.Context(), ownerID, req.SitterID)
		if err == nil {
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{"swipe": swipe, "conversation": conversation})
		}
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"swipe": swipe})
}

func (h *DiscoveryHandler) LikedSitters(c *fiber.Ctx) error {
	if _, ok := requireRole(c, "owner"); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	ownerID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	ids, err := h.swipeRepo.ListLikedSitterIDs(c.Context(), ownerID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load swipes"})
	}

	sitters := make([]models.SitterProfile, 0, len(ids))
	for _, id := range ids {
		sitter, err := h.sitterRepo.GetByUserID(c.Context(), id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load sitters"})
		}
		sitters = append(sitters, *sitter)
	}
	return c.JSON(fiber.Map{"sitters": sitters})
}
