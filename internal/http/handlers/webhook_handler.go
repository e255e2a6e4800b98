// Webhook HTTP handler.
//
// One path serves the provider and the operator frontend, multiplexed by
// method:
//   - OPTIONS  CORS preflight
//   - GET      subscription handshake (hub.mode / hub.verify_token / hub.challenge)
//   - POST     provider delivery, or {"action":"send_reply", ...} from the frontend
//
// Provider-facing answers are plain text because the provider only looks at
// the status code.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-helpdesk-webhook/internal/http/middleware"
	"github.com/tbourn/go-helpdesk-webhook/internal/provider"
	"github.com/tbourn/go-helpdesk-webhook/internal/services"
	"github.com/tbourn/go-helpdesk-webhook/internal/webhook"
)

// ActionSendReply selects the outbound dispatcher on a webhook POST.
const ActionSendReply = "send_reply"

// SendReplyCommand is the frontend's reply command posted to the webhook path.
type SendReplyCommand struct {
	Action      string `json:"action" example:"send_reply"`
	MessageType string `json:"message_type" example:"comment"`
	CommentID   string `json:"comment_id,omitempty" example:"17890012345"`
	RecipientID string `json:"recipient_id,omitempty" example:"1789"`
	Text        string `json:"text" example:"Thanks for reaching out!"`
	// Message is accepted as an alias of Text. A blank reply fails like
	// any other dispatch error, before the provider is called.
	Message string `json:"message,omitempty"`
}

func (c SendReplyCommand) request() services.ReplyRequest {
	text := c.Text
	if text == "" {
		text = c.Message
	}
	return services.ReplyRequest{
		MessageType: c.MessageType,
		CommentID:   c.CommentID,
		RecipientID: c.RecipientID,
		Text:        text,
	}
}

// SendReplySuccess is returned when the provider accepted the reply.
type SendReplySuccess struct {
	Success      bool              `json:"success" example:"true"`
	MetaResponse provider.Response `json:"meta_response"`
}

// SendReplyFailure is returned when the reply could not be dispatched.
// Details carries the provider's raw answer when there was one.
type SendReplyFailure struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error" example:"(#190) Invalid OAuth access token."`
	Details any    `json:"details" swaggertype:"object"`
}

// Webhook godoc
// @ID          webhook
// @Summary     Provider webhook
// @Description GET answers the subscription handshake. POST ingests an Instagram or WhatsApp delivery, or dispatches a reply when action is "send_reply". OPTIONS answers CORS preflight.
// @Tags        Webhook
// @Accept      json
// @Produce     plain
// @Produce     json
//
// @Param       hub.mode          query  string  false  "Handshake mode"     example(subscribe)
// @Param       hub.verify_token  query  string  false  "Shared secret"
// @Param       hub.challenge     query  string  false  "Value to echo"      example(1158201444)
// @Param       body              body   handlers.SendReplyCommand  false  "Reply command or provider delivery"
//
// @Success     200  {object}  handlers.SendReplySuccess  "send_reply result; the challenge or OK as text otherwise"
// @Failure     400  {string}  string                     "Bad Request"
// @Failure     403  {string}  string                     "Forbidden"
// @Failure     405  {string}  string                     "Method Not Allowed"
// @Failure     500  {object}  handlers.SendReplyFailure  "send_reply failed, or ingestion error as text"
// @Router      /api [get]
// @Router      /api [post]
func (h *Handlers) Webhook(c *gin.Context) {
	hdr := c.Writer.Header()
	hdr.Set("Access-Control-Allow-Origin", "*")
	hdr.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	hdr.Set("Access-Control-Allow-Headers", "Content-Type")

	switch c.Request.Method {
	case http.MethodOptions:
		c.Status(http.StatusOK)
	case http.MethodGet:
		h.verify(c)
	case http.MethodPost:
		h.receive(c)
	default:
		c.String(http.StatusMethodNotAllowed, "Method Not Allowed")
	}
}

func (h *Handlers) verify(c *gin.Context) {
	challenge, err := h.verifier.Verify(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
	)
	if err != nil {
		c.String(http.StatusForbidden, "Forbidden")
		return
	}
	c.String(http.StatusOK, challenge)
}

func (h *Handlers) receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.String(http.StatusRequestEntityTooLarge, "Payload Too Large")
			return
		}
		c.String(http.StatusBadRequest, "Bad Request")
		return
	}

	var head struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		c.String(http.StatusBadRequest, "Bad Request")
		return
	}

	if head.Action == ActionSendReply {
		h.sendReply(c, body)
		return
	}
	h.ingest(c, body)
}

func (h *Handlers) sendReply(c *gin.Context, body []byte) {
	var cmd SendReplyCommand
	if err := json.Unmarshal(body, &cmd); err != nil {
		c.String(http.StatusBadRequest, "Bad Request")
		return
	}

	resp, err := h.replier.Send(requestContext(c), cmd.request())
	if err != nil {
		msg, details := describeReplyError(err)
		c.JSON(http.StatusInternalServerError, SendReplyFailure{Error: msg, Details: details})
		return
	}
	if resp == nil {
		resp = provider.Response{}
	}
	c.JSON(http.StatusOK, SendReplySuccess{Success: true, MetaResponse: resp})
}

func (h *Handlers) ingest(c *gin.Context, body []byte) {
	p, err := webhook.Parse(body)
	if err != nil {
		c.String(http.StatusBadRequest, "Bad Request")
		return
	}

	lg := middleware.LoggerFrom(c)
	res, err := h.inbox.Ingest(requestContext(c), p)
	if err != nil {
		lg.Error().Err(err).Str("object", p.Object).Int("persisted", res.Persisted).Msg("webhook ingestion failed")
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	lg.Debug().
		Str("object", p.Object).
		Int("persisted", res.Persisted).
		Int("duplicates", res.Duplicates).
		Msg("webhook processed")
	c.String(http.StatusOK, "OK")
}

// describeReplyError maps a dispatcher error to the message and details
// reported to the frontend.
func describeReplyError(err error) (string, any) {
	var up *provider.UpstreamError
	if errors.As(err, &up) {
		raw := strings.TrimSpace(up.Body)
		switch {
		case raw == "":
			return up.Detail(), nil
		case json.Valid([]byte(raw)):
			return up.Detail(), json.RawMessage(raw)
		default:
			return up.Detail(), raw
		}
	}
	return err.Error(), nil
}
