package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-helpdesk-webhook/internal/http/middleware"
	"github.com/tbourn/go-helpdesk-webhook/internal/provider"
	"github.com/tbourn/go-helpdesk-webhook/internal/services"
)

// replyLedger is optionally implemented by the Replier to remember replies
// sent under an Idempotency-Key.
type replyLedger interface {
	Remember(ctx context.Context, key string) error
}

// ReplyResponse carries the provider's answer to an accepted reply.
type ReplyResponse struct {
	MetaResponse provider.Response `json:"meta_response"`
}

// PostReply godoc
// @ID          postReply
// @Summary     Send a reply
// @Description Dispatches an operator reply to a comment (message_type "comment") or a direct message thread.
// @Tags        Replies
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string                 false "Retries with the same key are not sent twice"  example(reply-7f3c)
// @Param       body             body    services.ReplyRequest  true  "Reply"
//
// @Success     200  {object} handlers.ReplyResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request or missing target"
// @Failure     409  {object} handlers.ErrorResponse "Already sent under this Idempotency-Key"
// @Failure     502  {object} handlers.ErrorResponse "Provider rejected the reply"
// @Failure     504  {object} handlers.ErrorResponse "Provider unreachable"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /api/v1/replies [post]
func (h *Handlers) PostReply(c *gin.Context) {
	if middleware.IsReplay(c) {
		fail(c, http.StatusConflict, ErrCodeConflict, "reply already sent for this Idempotency-Key")
		return
	}

	var req services.ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text required")
		return
	}

	ctx := requestContext(c)
	resp, err := h.replier.Send(ctx, req)
	if err != nil {
		var (
			missing *services.MissingTargetError
			up      *provider.UpstreamError
			ne      *provider.NetworkError
		)
		switch {
		case errors.Is(err, services.ErrEmptyText):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text required")
		case errors.As(err, &missing):
			fail(c, http.StatusBadRequest, ErrCodeMissingTarget, err.Error())
		case errors.As(err, &up):
			fail(c, http.StatusBadGateway, ErrCodeUpstream, up.Detail())
		case errors.As(err, &ne):
			fail(c, http.StatusGatewayTimeout, ErrCodeUpstream, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeReplyFailed, err.Error())
		}
		return
	}
	if key, found := middleware.GetIdempotencyKey(c); found {
		if l, isLedger := h.replier.(replyLedger); isLedger {
			if err := l.Remember(ctx, key); err != nil {
				middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency key not recorded")
			}
		}
	}
	if resp == nil {
		resp = provider.Response{}
	}
	ok(c, http.StatusOK, ReplyResponse{MetaResponse: resp})
}
