// Package services – ConversationService
//
// This file implements the read side used by operators: paginated listing
// of conversations with optional filters, the message history of one
// conversation, and aggregate stats used for conditional responses.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-helpdesk-webhook/internal/domain"
	"github.com/tbourn/go-helpdesk-webhook/internal/repo"
	"github.com/tbourn/go-helpdesk-webhook/internal/utils"
)

// ConversationRepo defines the repository contract required by
// ConversationService.
type ConversationRepo interface {
	// GetConversation fetches a conversation by ID.
	GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error)

	// CountConversations returns the number of conversations matching f.
	CountConversations(ctx context.Context, db *gorm.DB, f repo.ConversationFilter) (int64, error)

	// ListConversationsPage returns one page of conversations matching f.
	ListConversationsPage(ctx context.Context, db *gorm.DB, f repo.ConversationFilter, offset, limit int) ([]domain.Conversation, error)

	// CountMessages returns the number of messages in a conversation.
	CountMessages(ctx context.Context, db *gorm.DB, conversationID string) (int64, error)

	// ListMessagesPage returns one page of a conversation's messages.
	ListMessagesPage(ctx context.Context, db *gorm.DB, conversationID string, offset, limit int) ([]domain.Message, error)
}

// ConversationService exposes conversations and their messages to operators.
type ConversationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the repository used by this service.
	Repo ConversationRepo
}

// NewConversationService constructs a ConversationService.
func NewConversationService(db *gorm.DB, r ConversationRepo) *ConversationService {
	return &ConversationService{DB: db, Repo: r}
}

// ListPage returns a page of conversations matching f, most recently
// updated first, with the total count. Invalid page/pageSize fall back to
// 1 and 20.
func (s *ConversationService) ListPage(ctx context.Context, f repo.ConversationFilter, page, pageSize int) ([]domain.Conversation, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	total, err := s.Repo.CountConversations(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Conversation{}, 0, nil
	}
	items, err := s.Repo.ListConversationsPage(ctx, s.DB, f, utils.Offset(page, pageSize), pageSize)
	return items, total, err
}

// Messages returns a page of a conversation's messages in chronological
// order. It returns ErrConversationNotFound for unknown ids.
func (s *ConversationService) Messages(ctx context.Context, conversationID string, page, pageSize int) ([]domain.Message, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	if _, err := s.Repo.GetConversation(ctx, s.DB, conversationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrConversationNotFound
		}
		return nil, 0, err
	}

	total, err := s.Repo.CountMessages(ctx, s.DB, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}
	items, err := s.Repo.ListMessagesPage(ctx, s.DB, conversationID, utils.Offset(page, pageSize), pageSize)
	return items, total, err
}

// Stats returns the count and latest updated_at of conversations matching f.
func (s *ConversationService) Stats(ctx context.Context, f repo.ConversationFilter) (int64, *time.Time, error) {
	return repo.ConversationsStats(ctx, s.DB, f)
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return page, pageSize
}
