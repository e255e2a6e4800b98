// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Two surfaces are mounted:
//   - the provider webhook, a single method-multiplexed path (WebhookPath)
//     that answers its own CORS and speaks plain text
//   - the operator API under APIBasePath (JSON, paginated, idempotent replies)
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-helpdesk-webhook/internal/config"
	"github.com/tbourn/go-helpdesk-webhook/internal/domain"
	"github.com/tbourn/go-helpdesk-webhook/internal/http/handlers"
	"github.com/tbourn/go-helpdesk-webhook/internal/http/middleware"
	"github.com/tbourn/go-helpdesk-webhook/internal/repo"
	"github.com/tbourn/go-helpdesk-webhook/internal/services"
)

// replyKeyTTL bounds how long an Idempotency-Key on POST /replies is honored.
const replyKeyTTL = 24 * time.Hour

// conversationRepoShim adapts the repository free functions to the
// services.ConversationRepo interface.
type conversationRepoShim struct{}

// GetConversation proxies repo.GetConversation.
func (conversationRepoShim) GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	return repo.GetConversation(ctx, db, id)
}

// CountConversations proxies repo.CountConversations.
func (conversationRepoShim) CountConversations(ctx context.Context, db *gorm.DB, f repo.ConversationFilter) (int64, error) {
	return repo.CountConversations(ctx, db, f)
}

// ListConversationsPage proxies repo.ListConversationsPage.
func (conversationRepoShim) ListConversationsPage(ctx context.Context, db *gorm.DB, f repo.ConversationFilter, offset, limit int) ([]domain.Conversation, error) {
	return repo.ListConversationsPage(ctx, db, f, offset, limit)
}

// CountMessages proxies repo.CountMessages.
func (conversationRepoShim) CountMessages(ctx context.Context, db *gorm.DB, conversationID string) (int64, error) {
	return repo.CountMessages(ctx, db, conversationID)
}

// ListMessagesPage proxies repo.ListMessagesPage.
func (conversationRepoShim) ListMessagesPage(ctx context.Context, db *gorm.DB, conversationID string, offset, limit int) ([]domain.Message, error) {
	return repo.ListMessagesPage(ctx, db, conversationID, offset, limit)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. sender performs the outbound Graph API calls (a
// *provider.GraphClient in production).
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII and secret scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS (skipped on the webhook path) and security headers
//
// The operator API group adds, in order, idempotency validation, rate
// limiting (bypassed on replay) and gzip.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, sender services.Sender, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{middleware.HeaderOperatorToken},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET(middleware.MetricsPath, gin.WrapH(promhttp.Handler()))

	// 7) CORS posture; the webhook sets its own headers
	for _, mw := range corsMiddleware(cfg.CORS.AllowedOrigins) {
		r.Use(skipPath(cfg.WebhookPath, mw))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
		Expose:       []string{middleware.HeaderRequestID},
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/provider
	inboxSvc := &services.InboxService{
		DB:    db,
		Dedup: services.DedupOptions{Enabled: cfg.Dedup.Enabled, TTL: cfg.Dedup.TTL},
	}
	replySvc := &services.ReplyService{Sender: sender, DB: db, KeyTTL: replyKeyTTL}
	convSvc := services.NewConversationService(db, conversationRepoShim{})
	h := handlers.New(services.Verifier{Token: cfg.VerifyToken}, inboxSvc, replySvc, convSvc)

	// Provider webhook: GET verify, POST events/commands, OPTIONS preflight.
	r.Any(cfg.WebhookPath, h.Webhook)

	// Operator API
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, replySvc.Seen),
		middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByOperator()).Handler(),
		gzip.Gzip(gzip.DefaultCompression),
	)
	{
		api.GET("/conversations", h.ListConversations)
		api.GET("/conversations/:id/messages", h.ListMessages)
		api.POST("/replies", h.PostReply)
	}
}

// corsMiddleware builds the CORS chain for the operator surface. With no
// allowlist every origin is accepted.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:              []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:              []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderOperatorToken, middleware.HeaderIdempotencyKey},
		ExposeHeaders:             []string{"X-Request-ID", "Content-Length", "ETag"},
		AllowCredentials:          false,
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true // AllowCredentials must stay false
		return []gin.HandlerFunc{
			// Force ACAO: * even without an Origin header (health checks, curl).
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// skipPath runs mw for every request except those addressed to path.
func skipPath(path string, mw gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == path {
			c.Next()
			return
		}
		mw(c)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
