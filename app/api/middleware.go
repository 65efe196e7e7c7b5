package api

import (
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	cache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	SessionHeader  = "X-Session-ID"
	DefaultSession = "default"
	sessionKey     = "session"
)

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// sessionMiddleware resolves the session that scopes saved items and searches.
func sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := strings.TrimSpace(c.GetHeader(SessionHeader))
		if session == "" {
			session = DefaultSession
		}

		if !sessionPattern.MatchString(session) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid session",
				"message": "X-Session-ID must be 1-128 letters, digits, '.', '_' or '-'",
			})
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) string {
	return c.GetString(sessionKey)
}

// authMiddleware creates authentication middleware for API endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			return
		}

		if providedKey != apiAccessKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			return
		}

		c.Next()
	}
}

// rateLimitMiddleware applies a token bucket per client IP. The session header
// is client supplied, so it never selects the bucket. Idle buckets expire
// after ten minutes.
func rateLimitMiddleware(limit float64, burst int) gin.HandlerFunc {
	limiters := cache.New(10*time.Minute, 5*time.Minute)
	var mu sync.Mutex

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		if value, ok := limiters.Get(key); ok {
			limiters.SetDefault(key, value)
			return value.(*rate.Limiter)
		}
		limiter := rate.NewLimiter(rate.Limit(limit), burst)
		limiters.SetDefault(key, limiter)
		return limiter
	}

	return func(c *gin.Context) {
		if !limiterFor(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}

		c.Next()
	}
}
