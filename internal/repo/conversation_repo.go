// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Conversation model.
//
// Functions:
//
//   - FindConversationByComment(ctx, db, commentID) -> *domain.Conversation, error
//     Per-comment threading lookup, regardless of status.
//
//   - FindOpenDMConversation(ctx, db, customerID) -> *domain.Conversation, error
//     Open direct-message thread for a customer (compound predicate).
//
//   - CreateConversation(ctx, db, conv) -> error
//     Inserts a new thread with UUID id and server timestamps.
//
//   - TouchConversation(ctx, db, id, now) -> error
//     Bumps updated_at when a message is appended.
//
//   - ListConversationsPage / CountConversations / GetConversation
//     Read side for the operator API.
//
// Lookups return ErrNotFound when no row matches.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-helpdesk-webhook/internal/domain"
)

// ConversationFilter narrows conversation listings. Empty fields match all.
type ConversationFilter struct {
	Status      string
	Channel     string
	MessageType string
}

func (f ConversationFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Channel != "" {
		q = q.Where("channel_source = ?", f.Channel)
	}
	if f.MessageType != "" {
		q = q.Where("message_type = ?", f.MessageType)
	}
	return q
}

// FindConversationByComment returns the conversation whose comment_id equals
// commentID, whatever its status.
func FindConversationByComment(ctx context.Context, db *gorm.DB, commentID string) (*domain.Conversation, error) {
	var out []domain.Conversation
	err := db.WithContext(ctx).
		Where("comment_id = ?", commentID).
		Order("created_at ASC, id ASC").
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

// FindOpenDMConversation returns the open "dm" conversation of customerID.
// All three predicates are evaluated by the store in one query.
func FindOpenDMConversation(ctx context.Context, db *gorm.DB, customerID string) (*domain.Conversation, error) {
	var out []domain.Conversation
	err := db.WithContext(ctx).
		Where("customer_id = ? AND status = ? AND message_type = ?", customerID, domain.StatusOpen, domain.MessageTypeDM).
		Order("updated_at DESC, id ASC").
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

// CreateConversation inserts c. ID is generated when empty; Status defaults
// to open; CreatedAt and UpdatedAt are both set to now.
func CreateConversation(ctx context.Context, db *gorm.DB, c *domain.Conversation, now time.Time) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = domain.StatusOpen
	}
	c.CreatedAt = now.UTC()
	c.UpdatedAt = c.CreatedAt
	return db.WithContext(ctx).Omit("Customer").Create(c).Error
}

// TouchConversation sets updated_at to now. It returns ErrNotFound when the
// conversation does not exist.
func TouchConversation(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", now.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetConversation fetches a conversation by id.
func GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CountConversations returns the number of conversations matching f.
func CountConversations(ctx context.Context, db *gorm.DB, f ConversationFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Conversation{})).Count(&total).Error
	return total, err
}

// ListConversationsPage returns conversations matching f, most recently
// updated first.
func ListConversationsPage(ctx context.Context, db *gorm.DB, f ConversationFilter, offset, limit int) ([]domain.Conversation, error) {
	var out []domain.Conversation
	err := f.apply(db.WithContext(ctx)).
		Order("updated_at DESC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
