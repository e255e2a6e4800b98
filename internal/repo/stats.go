// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-helpdesk-webhook/internal/domain"
)

// ConversationsStats returns aggregate metadata for the conversations that
// match f: the total number of rows and the maximum UpdatedAt among them.
//
// Return values:
//   - count:        total conversations matching f
//   - maxUpdatedAt: pointer to the greatest UpdatedAt, or nil if no rows
//   - err:          database error, if any
func ConversationsStats(ctx context.Context, db *gorm.DB, f ConversationFilter) (count int64, maxUpdatedAt *time.Time, err error) {
	if err = f.apply(db.WithContext(ctx).Model(&domain.Conversation{})).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	err = f.apply(db.WithContext(ctx).Model(&domain.Conversation{})).
		Select("updated_at").
		Order("updated_at DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// MessagesStats returns the number of messages in a conversation and the
// latest message Timestamp, or nil when the conversation has none.
func MessagesStats(ctx context.Context, db *gorm.DB, conversationID string) (count int64, maxTimestamp *time.Time, err error) {
	q := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.Message{}).Where("conversation_id = ?", conversationID)
	}
	if err = q().Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		Timestamp time.Time
	}
	if err = q().Select("timestamp").Order("timestamp DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.Timestamp, nil
}
