package handlers

import (
	"context"
	"strconv"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/services"
	chatws "github.com/aliattia10/paseo-backend/internal/websocket"
	"github.com/aliattia10/paseo-backend/pkg/utils"
)

type chatApplicationService interface {
	StartConversation(ctx context.Context, actorID, otherUserID int64) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID int64) ([]models.ConversationSummary, error)
	GetMessages(ctx context.Context, userID, conversationID int64, limit, offset int) ([]models.ChatMessage, error)
	SendMessage(ctx context.Context, userID, conversationID int64, content string) (*services.ChatDelivery, error)
}

type chatDeliveryHub interface {
	Push(delivery *services.ChatDelivery)
	Attach(conn *websocket.Conn, userID int64, service chatws.Sender)
}

type ChatHandler struct {
	service   chatApplicationService
	hub       chatDeliveryHub
	jwtSecret string
}

func NewChatHandler(service *services.ChatService, hub *chatws.Hub, jwtSecret string) *ChatHandler {
	return &ChatHandler{
		service:   service,
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

type startConversationRequest struct {
	UserID int64 `json:"user_id"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h *ChatHandler) StartConversation(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req startConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	conversation, err := h.service.StartConversation(c.Context(), userID, req.UserID)
	if err != nil {
		return mapChatError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"conversation": conversation})
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversations, err := h.service.ListConversations(c.Context(), userID)
	if err != nil {
		return mapChatError(c, err)
	}
	return c.JSON(fiber.Map{"conversations": conversations})
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	conversationID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	messages, err := h.service.GetMessages(c.Context(), userID, conversationID, c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return mapChatError(c, err)
	}
	return c.JSON(fiber.Map{"messages": messages})
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	conversationID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	delivery, err := h.service.SendMessage(c.Context(), userID, conversationID, req.Content)
	if err != nil {
		return mapChatError(c, err)
	}

	// Open sockets see the message immediately, same as the websocket path.
	h.hub.Push(delivery)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": delivery.Message})
}

// UpgradeWebsocket authenticates the token query parameter before the
// connection is upgraded. Browsers cannot set headers on websocket dials.
func (h *ChatHandler) UpgradeWebsocket(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	claims, err := utils.ValidateToken(token, h.jwtSecret)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	c.Locals("user_id", claims.UserID)
	return c.Next()
}

func (h *ChatHandler) HandleWebsocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		rawID, ok := conn.Locals("user_id").(string)
		if !ok || rawID == "" {
			_ = conn.Close()
			return
		}
		userID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			_ = conn.Close()
			return
		}

		h.hub.Attach(conn, userID, h.service)
	})
}

func mapChatError(c *fiber.Ctx, err error) error {
	return mapServiceError(c, err, "Conversation not found")
}
