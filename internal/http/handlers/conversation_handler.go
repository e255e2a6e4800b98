// Conversation HTTP handlers.
//
// This file exposes the operator read API:
//   - GET /conversations                 (list, paginated, filters, ETag support)
//   - GET /conversations/{id}/messages   (history, paginated, oldest first)
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-helpdesk-webhook/internal/domain"
	"github.com/tbourn/go-helpdesk-webhook/internal/repo"
	"github.com/tbourn/go-helpdesk-webhook/internal/services"
)

// ListConversationsResponse wraps a page of conversations and pagination information.
type ListConversationsResponse struct {
	Conversations []domain.Conversation `json:"conversations"`
	Pagination    Pagination            `json:"pagination"`
}

// ListMessagesResponse wraps a page of messages and pagination information.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// conversationFilter reads and validates the list filters.
func conversationFilter(c *gin.Context) (repo.ConversationFilter, error) {
	f := repo.ConversationFilter{
		Status:      strings.TrimSpace(c.Query("status")),
		Channel:     strings.TrimSpace(c.Query("channel")),
		MessageType: strings.TrimSpace(c.Query("message_type")),
	}
	if f.Channel != "" && !domain.Channel(f.Channel).Valid() {
		return f, fmt.Errorf("unknown channel %q", f.Channel)
	}
	switch f.MessageType {
	case "", domain.MessageTypeDM, domain.MessageTypeComment:
	default:
		return f, fmt.Errorf("unknown message_type %q", f.MessageType)
	}
	return f, nil
}

// ListConversations godoc
// @ID          listConversations
// @Summary     List conversations (paginated)
// @Description Returns conversations, most recently active first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Conversations
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       status         query   string  false "Filter by status"            example(open)
// @Param       channel        query   string  false "Filter by channel"           Enums(instagram, whatsapp)
// @Param       message_type   query   string  false "Filter by threading policy"  Enums(dm, comment)
// @Param       page           query   int     false "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"              minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListConversationsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /api/v1/conversations [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	ctx := requestContext(c)
	f, err := conversationFilter(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if st, ok := h.convSvc.(conversationStats); ok {
		count, maxTS, err := st.Stats(ctx, f)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"conversations:%s:%s:%s:%d:%d"`, f.Status, f.Channel, f.MessageType, count, ts)
			if notModified(c, etag) {
				return
			}
		}
	}

	items, total, err := h.convSvc.ListPage(ctx, f, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListConversationsResponse{
		Conversations: items,
		Pagination:    newPagination(page, pageSize, total),
	})
}

// ListMessages godoc
// @ID          listConversationMessages
// @Summary     List messages of a conversation (paginated)
// @Description Returns the conversation's messages, oldest first.
// @Tags        Conversations
// @Produce     json
//
// @Param       id         path    string  true  "Conversation ID (UUID)"  format(uuid)
// @Param       page       query   int     false "Page number"             minimum(1) default(1)
// @Param       page_size  query   int     false "Items per page"          minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListMessagesResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /api/v1/conversations/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	convID := c.Param("id")
	if _, err := uuid.Parse(convID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.convSvc.Messages(requestContext(c), convID, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrConversationNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages:   items,
		Pagination: newPagination(page, pageSize, total),
	})
}
