package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/services"
	chatws "github.com/aliattia10/paseo-backend/internal/websocket"
)

type stubChatService struct {
	sendResult         *services.ChatDelivery
	sendErr            error
	lastSenderID       int64
	lastConversationID int64
	lastContent        string
}

func (s *stubChatService) StartConversation(_ context.Context, actorID, otherUserID int64) (*models.Conversation, error) {
	return &models.Conversation{ID: 1, OwnerID: actorID, SitterID: otherUserID}, nil
}

func (s *stubChatService) ListConversations(_ context.Context, _ int64) ([]models.ConversationSummary, error) {
	return nil, nil
}

func (s *stubChatService) GetMessages(_ context.Context, _, _ int64, _, _ int) ([]models.ChatMessage, error) {
	return nil, nil
}

func (s *stubChatService) SendMessage(_ context.Context, userID, conversationID int64, content string) (*services.ChatDelivery, error) {
	s.lastSenderID = userID
	s.lastConversationID = conversationID
	s.lastContent = content
	return s.sendResult, s.sendErr
}

type stubChatHub struct {
	pushed []*services.ChatDelivery
}

func (h *stubChatHub) Push(delivery *services.ChatDelivery) {
	h.pushed = append(h.pushed, delivery)
}

func (h *stubChatHub) Attach(_ *websocket.Conn, _ int64, _ chatws.Sender) {}

func newChatTestApp(service *stubChatService, hub *stubChatHub, userID string) *fiber.App {
	handler := &ChatHandler{service: service, hub: hub}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("role", "owner")
		return c.Next()
	})
	app.Post("/api/v1/conversations/:id/messages", handler.SendMessage)
	return app
}

func TestSendMessagePushesToOpenSockets(t *testing.T) {
	delivery := &services.ChatDelivery{
		Message: &models.ChatMessage{
			ID:             5,
			ConversationID: 3,
			SenderID:       42,
			Content:        "On my way with Rocky",
		},
		RecipientID: 7,
	}
	service := &stubChatService{sendResult: delivery}
	hub := &stubChatHub{}
	app := newChatTestApp(service, hub, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/3/messages", strings.NewReader(`{"content": "On my way with Rocky"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastSenderID != 42 || service.lastConversationID != 3 {
		t.Fatalf("unexpected args: sender=%d conversation=%d", service.lastSenderID, service.lastConversationID)
	}
	if len(hub.pushed) != 1 || hub.pushed[0] != delivery {
		t.Fatalf("expected the stored message pushed to the hub, got %+v", hub.pushed)
	}

	var body struct {
		Message models.ChatMessage `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Message.ID != 5 {
		t.Fatalf("expected stored message in response, got %+v", body.Message)
	}
}

func TestSendMessageDoesNotPushOnServiceError(t *testing.T) {
	service := &stubChatService{sendErr: services.ErrForbidden}
	hub := &stubChatHub{}
	app := newChatTestApp(service, hub, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/3/messages", strings.NewReader(`{"content": "hi"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if len(hub.pushed) != 0 {
		t.Fatalf("expected no push on error, got %d", len(hub.pushed))
	}
}
