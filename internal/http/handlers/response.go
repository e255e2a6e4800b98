// Package handlers provides HTTP handler implementations for the public API.
//
// This file holds the operator API's response helpers. Every operator error
// is an ErrorResponse with a stable code. The webhook endpoint is the
// exception: provider-facing answers are plain text ("OK", "Forbidden") and
// the send_reply command keeps its own {success, ...} body, because callers
// already depend on those shapes.
//
//	HTTP/1.1 502 Bad Gateway
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "upstream_error",
//	  "message": "(#190) Invalid OAuth access token."
//	}
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-helpdesk-webhook/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by the operator API.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
}

// fail aborts with an ErrorResponse. 5xx answers are logged, provider
// failures at warn and everything else at error.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		level := lg.Error
		if code == ErrCodeUpstream {
			level = lg.Warn
		}
		logFailure(level(), c, status, code, msg)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get(middleware.HeaderRequestID),
		Code:      code,
		Message:   msg,
	})
}

func logFailure(ev *zerolog.Event, c *gin.Context, status int, code, msg string) {
	if id := c.Param("id"); id != "" {
		ev = ev.Str("conversation_id", id)
	}
	ev.Int("status", status).Str("code", code).Str("message", msg).Msg("api error")
}

// Fail is the exported variant of fail, used by the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// notModified sets etag on the response and reports whether the request's
// If-None-Match already names it, in which case a bare 304 has been written.
// Comparison is weak: W/ prefixes are ignored and "*" matches anything.
func notModified(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	inm := c.GetHeader("If-None-Match")
	if inm == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, tag := range strings.Split(inm, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" || strings.TrimPrefix(tag, "W/") == want {
			c.Status(http.StatusNotModified)
			return true
		}
	}
	return false
}
