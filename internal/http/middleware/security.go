// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders. Both surfaces of the helpdesk answer
// with data that must not linger in shared caches: operator listings carry
// customer names and message text, and webhook send_reply results echo the
// provider's response. HSTS is opt-in and only sent over HTTPS, which behind
// a load balancer is learned from X-Forwarded-Proto or Forwarded.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	EnableHSTS   bool          // only when TLS terminates in front of this process
	HSTSMaxAge   time.Duration // defaults to 180 days
	NoStore      bool          // Cache-Control: no-store plus legacy Pragma/Expires
	EnablePolicy bool          // Permissions-Policy and X-Permitted-Cross-Domain-Policies

	// Expose lists response headers browser clients may read, merged into
	// Access-Control-Expose-Headers without duplicating names already there.
	Expose []string
}

// SecurityHeaders sets, on every response:
//
//	X-Content-Type-Options: nosniff
//	X-Frame-Options: DENY
//	Referrer-Policy: no-referrer
//
// and, as configured, the cache, feature policy, HSTS and expose headers.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}
		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		for _, name := range opt.Expose {
			appendToken(h, "Access-Control-Expose-Headers", name)
		}

		c.Next()
	}
}

// appendToken adds tok to the comma-separated header key unless an equal
// token (case-insensitive) is already listed.
func appendToken(h http.Header, key, tok string) {
	cur := h.Get(key)
	if cur == "" {
		h.Set(key, tok)
		return
	}
	for _, t := range strings.Split(cur, ",") {
		if strings.EqualFold(strings.TrimSpace(t), tok) {
			return
		}
	}
	h.Set(key, cur+", "+tok)
}

// isHTTPS reports whether the client reached us over TLS, directly or through
// a proxy that says so in X-Forwarded-Proto or the RFC 7239 Forwarded header.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	for _, elem := range strings.FieldsFunc(r.Header.Get("Forwarded"), func(c rune) bool { return c == ';' || c == ',' }) {
		k, v, ok := strings.Cut(strings.TrimSpace(elem), "=")
		if ok && strings.EqualFold(k, "proto") && strings.EqualFold(strings.Trim(v, `"`), "https") {
			return true
		}
	}
	return false
}
