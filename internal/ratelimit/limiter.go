// Package ratelimit throttles credential endpoints per client IP using Redis.
package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okdriver/backend/internal/api/response"
	"github.com/okdriver/backend/internal/cache"
)

// RateLimitInfo contains rate limit information for a response
type RateLimitInfo struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"` // Unix timestamp
}

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	cache  *cache.Redis
	name   string
	limit  int
	window time.Duration
	log    *slog.Logger
}

// NewRateLimiter creates a limiter allowing limit requests per window for each client.
// name namespaces the Redis keys so several limiters can share one instance.
func NewRateLimiter(cache *cache.Redis, name string, limit int, window time.Duration, log *slog.Logger) *RateLimiter {
	return &RateLimiter{
		cache:  cache,
		name:   name,
		limit:  limit,
		window: window,
		log:    log.With(slog.String("component", "ratelimit"), slog.String("limiter", name)),
	}
}

// Allow checks if a request should be allowed and returns the remaining budget
func (r *RateLimiter) Allow(ctx context.Context, identifier string) (bool, *RateLimitInfo, error) {
	allowed, remaining, err := r.checkSlidingWindowLimit(ctx, r.key(identifier), r.limit, r.window)
	if err != nil {
		return false, nil, err
	}

	info := &RateLimitInfo{
		Limit:     r.limit,
		Remaining: remaining,
		Reset:     time.Now().Add(r.window).Unix(),
	}
	return allowed, info, nil
}

// Middleware returns HTTP middleware that enforces the limit per client IP
func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		ip := ClientIP(req)

		allowed, info, err := r.Allow(ctx, ip)
		if err != nil {
			// Fail open: an unavailable Redis must not lock everyone out.
			r.log.WarnContext(ctx, "rate limit check failed", "ip", ip, "error", err)
			next.ServeHTTP(w, req)
			return
		}

		r.setRateLimitHeaders(w, info)

		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(r.window.Seconds())))
			response.TooManyRequests(w, "Too many attempts. Please try again later.")
			return
		}

		next.ServeHTTP(w, req)
	})
}

func (r *RateLimiter) key(identifier string) string {
	return "ratelimit:" + r.name + ":" + identifier
}

// setRateLimitHeaders sets rate limit headers on the response
func (r *RateLimiter) setRateLimitHeaders(w http.ResponseWriter, info *RateLimitInfo) {
	if info == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.Reset, 10))
}

// ClientIP extracts the client IP from the request
func ClientIP(req *http.Request) string {
	// Check X-Forwarded-For header (common for proxies/load balancers)
	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := req.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
