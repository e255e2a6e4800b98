// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file throttles the operator API with per-caller token buckets
// (golang.org/x/time/rate). The provider webhook is never mounted behind it:
// a 429 there only makes Meta redeliver the same batch later.
//
// Buckets are process-local. Idle ones are swept every sweepEvery lookups.
package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// HeaderOperatorToken identifies the helpdesk frontend session making an
	// operator API call. It is masked in access logs.
	HeaderOperatorToken = "X-Operator-Token"

	sweepEvery    = 5000
	maxRetryAfter = 60 // seconds
)

// KeyFunc maps a request to the bucket it draws from.
type KeyFunc func(*gin.Context) string

// KeyByOperator buckets requests by operator token, so agents behind one NAT
// do not starve each other, and falls back to the client IP when the
// frontend sends no token. Only a digest of the token is kept in memory.
func KeyByOperator() KeyFunc {
	return func(c *gin.Context) string {
		if tok := strings.TrimSpace(c.GetHeader(HeaderOperatorToken)); tok != "" {
			sum := sha256.Sum256([]byte(tok))
			return "op:" + hex.EncodeToString(sum[:8])
		}
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per key. Safe for concurrent use.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	key     KeyFunc
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	lookups int
}

// NewRateLimiter allows rps sustained requests per key with bursts of up to
// burst (coerced to at least 1).
func NewRateLimiter(rps float64, burst int, key KeyFunc) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   max(burst, 1),
		key:     key,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// bucketFor returns key's limiter. The sweep runs before the lookup so an
// expired bucket for key is replaced instead of revived.
func (rl *RateLimiter) bucketFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= sweepEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lookups = 0
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim
}

// IsRateBypass reports whether IdempotencyValidator recognized this request
// as a replay of a reply that was already sent.
func IsRateBypass(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyRateBypass)
	b, _ := v.(bool)
	return b
}

// Handler enforces the limit. Replays pass without spending a token. A
// throttled request gets 429 in the operator error envelope with a
// Retry-After derived from the bucket's refill time.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		now := rl.now()
		res := rl.bucketFor(rl.key(c), now).ReserveN(now, 1)
		delay := res.DelayFrom(now)
		if res.OK() && delay == 0 {
			c.Next()
			return
		}
		res.CancelAt(now)

		httpThrottled.WithLabelValues(routeLabel(c)).Inc()
		c.Header("Retry-After", retryAfter(delay))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(HeaderRequestID),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}

// retryAfter renders d as whole seconds within [1, maxRetryAfter].
func retryAfter(d time.Duration) string {
	secs := math.Ceil(d.Seconds())
	return strconv.Itoa(int(min(max(secs, 1), maxRetryAfter)))
}
