package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// RateLimiter allows at most maxRequests per client within a sliding window.
// Idle client entries expire from the cache after two windows.
type RateLimiter struct {
	clients     *gocache.Cache
	logger      *zap.Logger
	maxRequests int
	window      time.Duration
	now         func() time.Time

	mu sync.Mutex
}

type clientLimit struct {
	requests []time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(logger *zap.Logger, maxRequests int, window time.Duration) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		clients:     gocache.New(window*2, window*2),
		logger:      logger,
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Allow records a request from clientID and reports whether it is within the limit.
func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limit := &clientLimit{}
	if v, ok := rl.clients.Get(clientID); ok {
		limit = v.(*clientLimit)
	}

	now := rl.now()
	cutoff := now.Add(-rl.window)
	valid := limit.requests[:0]
	for _, at := range limit.requests {
		if at.After(cutoff) {
			valid = append(valid, at)
		}
	}
	limit.requests = valid
	defer rl.clients.SetDefault(clientID, limit)

	if len(limit.requests) >= rl.maxRequests {
		rl.logger.Warn("Rate limit exceeded",
			zap.String("client_id", clientID),
			zap.Int("requests", len(limit.requests)),
			zap.Int("max_requests", rl.maxRequests),
			zap.Duration("window", rl.window))
		return false
	}
	limit.requests = append(limit.requests, now)
	return true
}

func clientID(c *gin.Context) string {
	if user := GetUserFromContext(c); user != nil {
		return user.ID
	}
	return c.ClientIP()
}

// RateLimitMiddleware rejects clients that exceed rl with 429.
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(clientID(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}
		c.Next()
	}
}
