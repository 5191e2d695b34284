package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/repository"
)

type ChatService struct {
	conversationRepo *repository.ConversationRepository
	messageRepo      *repository.MessageRepository
	userRepo         userReader
}

func NewChatService(
	conversationRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	userRepo userReader,
) *ChatService {
	return &ChatService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
	}
}

// StartConversation opens (or reopens) the thread between an owner and a
// sitter. Either side may initiate; the pair is stored owner first.
func (s *ChatService) StartConversation(ctx context.Context, actorID, otherUserID int64) (*models.Conversation, error) {
	if actorID == otherUserID || otherUserID <= 0 {
		return nil, ErrInvalidInput
	}

	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	other, err := s.userRepo.GetByID(ctx, otherUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if actor.Role == other.Role {
		return nil, ErrInvalidInput
	}

	ownerID, sitterID := actorID, otherUserID
	if actor.Role == "sitter" {
		ownerID, sitterID = otherUserID, actorID
	}

	return s.conversationRepo.CreateOrGet(ctx, ownerID, sitterID)
}

func (s *ChatService) ListConversations(ctx context.Context, userID int64) ([]models.ConversationSummary, error) {
	return s.conversationRepo.ListForParticipant(ctx, userID)
}

// GetMessages returns the thread and marks the other side's messages read.
func (s *ChatService) GetMessages(ctx context.Context, userID, conversationID int64, limit, offset int) ([]models.ChatMessage, error) {
	if _, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	messages, err := s.messageRepo.ListByConversation(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.messageRepo.MarkRead(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return messages, nil
}

// ChatDelivery pairs a stored message with the other participant, so the
// websocket hub knows who to push it to.
type ChatDelivery struct {
	Message     *models.ChatMessage
	RecipientID int64
}

func (s *ChatService) SendMessage(ctx context.Context, userID, conversationID int64, content string) (*ChatDelivery, error) {
	content = strings.TrimSpace(content)
	if content == "" || len(content) > 4000 {
		return nil, ErrInvalidInput
	}

	conversation, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	message, err := s.messageRepo.Create(ctx, conversationID, userID, content)
	if err != nil {
		return nil, err
	}

	recipientID := conversation.SitterID
	if userID == conversation.SitterID {
		recipientID = conversation.OwnerID
	}
	return &ChatDelivery{Message: message, RecipientID: recipientID}, nil
}

func FormatChatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
