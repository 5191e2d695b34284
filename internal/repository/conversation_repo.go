package repository

import (
	"context"
	"time"

	"github.com/aliattia10/paseo-backend/internal/models"
)

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateOrGet returns the conversation for an owner/sitter pair, creating it
// on first contact. The pair is unique so concurrent creates converge on one
// row.
func (r *ConversationRepository) CreateOrGet(ctx context.Context, ownerID, sitterID int64) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (owner_id, sitter_id)
		VALUES ($1, $2)
		ON CONFLICT (owner_id, sitter_id)
		DO UPDATE SET updated_at = conversations.updated_at
		RETURNING id, owner_id, sitter_id, created_at, updated_at
	`
	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, ownerID, sitterID).Scan(
		&conversation.ID,
		&conversation.OwnerID,
		&conversation.SitterID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *ConversationRepository) GetByIDForParticipant(ctx context.Context, conversationID, userID int64) (*models.Conversation, error) {
	query := `
		SELECT id, owner_id, sitter_id, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND (owner_id = $2 OR sitter_id = $2)
	`
	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, conversationID, userID).Scan(
		&conversation.ID,
		&conversation.OwnerID,
		&conversation.SitterID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *ConversationRepository) ListForParticipant(ctx context.Context, userID int64) ([]models.ConversationSummary, error) {
	query := `
		SELECT c.id, c.owner_id, c.sitter_id, c.created_at, c.updated_at,
			   m.id, m.conversation_id, m.sender_id, m.content, m.is_read, m.created_at,
			   COALESCE(u.unread_count, 0)
		FROM conversations c
		LEFT JOIN LATERAL (
			SELECT id, conversation_id, sender_id, content, is_read, created_at
			FROM chat_messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) m ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*)::int AS unread_count
			FROM chat_messages
			WHERE conversation_id = c.id AND sender_id <> $1 AND is_read = FALSE
		) u ON TRUE
		WHERE c.owner_id = $1 OR c.sitter_id = $1
		ORDER BY COALESCE(m.created_at, c.created_at) DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var summary models.ConversationSummary
		var msgID, msgConversationID, msgSenderID *int64
		var msgContent *string
		var msgIsRead *bool
		var msgCreatedAt *time.Time

		err := rows.Scan(
			&summary.ID,
			&summary.OwnerID,
			&summary.SitterID,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&msgID,
			&msgConversationID,
			&msgSenderID,
			&msgContent,
			&msgIsRead,
			&msgCreatedAt,
			&summary.UnreadCount,
		)
		if err != nil {
			return nil, err
		}
		if msgID != nil {
			summary.LastMessage = &models.ChatMessage{
				ID:             *msgID,
				ConversationID: *msgConversationID,
				SenderID:       *msgSenderID,
				Content:        *msgContent,
				IsRead:         *msgIsRead,
				CreatedAt:      *msgCreatedAt,
			}
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}
