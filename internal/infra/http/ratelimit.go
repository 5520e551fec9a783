package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// enforceRateLimit applies the configured limiter to the request and writes
// draft RateLimit headers. Returns false when the request was rejected and a
// response has already been written.
func (s *Server) enforceRateLimit(c *gin.Context, scope string) bool {
	if s.rateLimiter == nil || s.rateLimitRequests <= 0 {
		return true
	}
	key := scope + ":" + c.ClientIP()
	decision, err := s.rateLimiter.Allow(c.Request.Context(), key, s.rateLimitRequests, s.rateLimitWindow)
	if err != nil {
		if s.rateLimitFailClosed {
			writeErrorCode(c, http.StatusServiceUnavailable, "RATE_LIMIT_UNAVAILABLE", "rate limiter unavailable")
			c.Abort()
			return false
		}
		return true
	}

	resetSeconds := int(time.Until(decision.ResetAt) / time.Second)
	if resetSeconds < 0 {
		resetSeconds = 0
	}
	c.Header("RateLimit-Limit", strconv.Itoa(s.rateLimitRequests))
	c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	c.Header("RateLimit-Reset", strconv.Itoa(resetSeconds))

	if !decision.Allowed {
		retryAfter := resetSeconds
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
		c.Abort()
		return false
	}
	return true
}
