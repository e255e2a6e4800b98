// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-helpdesk-webhook/internal/domain"
)

// CreateMessage appends an incoming message to a conversation. Timestamp is
// the server time now; commentID may be nil.
func CreateMessage(ctx context.Context, db *gorm.DB, conversationID, customerID, text, metaMsgID string, commentID *string, now time.Time) (*domain.Message, error) {
	m := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		CustomerID:     customerID,
		Type:           domain.DirectionIncoming,
		Text:           text,
		Timestamp:      now.UTC(),
		MetaMsgID:      metaMsgID,
		CommentID:      commentID,
	}
	return m, db.WithContext(ctx).Omit("Conversation").Create(m).Error
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, conversationID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM messages WHERE conversation_id = ?", conversationID).
		Scan(&total).Error
	return total, err
}

// ListMessagesPage returns a paginated slice ordered (Timestamp ASC, ID ASC).
func ListMessagesPage(ctx context.Context, db *gorm.DB, conversationID string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
