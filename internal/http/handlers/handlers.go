// Package handlers contains the Gin handlers for the webhook endpoint and the
// operator API.
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results (or typed errors) into HTTP responses.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-helpdesk-webhook/internal/domain"
	"github.com/tbourn/go-helpdesk-webhook/internal/http/middleware"
	"github.com/tbourn/go-helpdesk-webhook/internal/provider"
	"github.com/tbourn/go-helpdesk-webhook/internal/repo"
	"github.com/tbourn/go-helpdesk-webhook/internal/services"
	"github.com/tbourn/go-helpdesk-webhook/internal/utils"
	"github.com/tbourn/go-helpdesk-webhook/internal/webhook"
)

//
// Service contracts (context-aware)
//

// Verifier answers the provider's subscription handshake.
type Verifier interface {
	// Verify returns the challenge to echo, or services.ErrForbiddenVerification.
	Verify(mode, token, challenge string) (string, error)
}

// Inbox ingests provider deliveries.
type Inbox interface {
	Ingest(ctx context.Context, p *webhook.Payload) (services.IngestResult, error)
}

// Replier dispatches one outbound reply.
type Replier interface {
	Send(ctx context.Context, req services.ReplyRequest) (provider.Response, error)
}

// ConversationService is the operator read side.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ConversationService interface {
	// ListPage returns a page of conversations matching f and the total count.
	ListPage(ctx context.Context, f repo.ConversationFilter, page, pageSize int) ([]domain.Conversation, int64, error)
	// Messages returns a page of a conversation's messages and the total count.
	Messages(ctx context.Context, conversationID string, page, pageSize int) ([]domain.Message, int64, error)
}

// conversationStats is optionally implemented by ConversationService to
// enable weak ETags on listings.
type conversationStats interface {
	Stats(ctx context.Context, f repo.ConversationFilter) (int64, *time.Time, error)
}

//
// Handler wiring
//

// Handlers groups the webhook endpoint and the operator API.
type Handlers struct {
	verifier Verifier
	inbox    Inbox
	replier  Replier
	convSvc  ConversationService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(v Verifier, inbox Inbox, replier Replier, convSvc ConversationService) *Handlers {
	return &Handlers{verifier: v, inbox: inbox, replier: replier, convSvc: convSvc}
}

// requestContext carries the request-scoped logger so services can log with
// the request id via zerolog.Ctx.
func requestContext(c *gin.Context) context.Context {
	return middleware.LoggerFrom(c).WithContext(c.Request.Context())
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = max(utils.AtoiDefault(c.Query("page"), defaultPage), 1)
	pageSize = utils.Clamp(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}
