package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jonesrussell/feedback-api/internal/domain"
	"github.com/jonesrussell/feedback-api/internal/metrics"
)

// Limiter names and their 429 messages.
const (
	LimiterGeneral  = "general"
	LimiterFeedback = "feedback"
	LimiterSnapshot = "snapshot"
)

var limiterMessages = map[string]string{
	LimiterGeneral:  "Too many requests, please try again later",
	LimiterFeedback: "Too many feedback submissions, please try again later",
	LimiterSnapshot: "Too many snapshot submissions, please try again later",
}

// idleTTL is how long an unused client bucket is kept.
const idleTTL = 10 * time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter allows perMinute requests per client IP with bursts up to
// perMinute. A non-positive perMinute disables the limiter. Closing done
// stops the idle bucket sweeper.
func RateLimiter(name string, perMinute int, done <-chan struct{}, m *metrics.Metrics) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	message, ok := limiterMessages[name]
	if !ok {
		message = limiterMessages[LimiterGeneral]
	}

	var mu sync.Mutex
	buckets := make(map[string]*clientBucket)
	every := rate.Every(time.Minute / time.Duration(perMinute))

	go func() {
		ticker := time.NewTicker(idleTTL)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				mu.Lock()
				cutoff := time.Now().Add(-idleTTL)
				for ip, b := range buckets {
					if b.lastSeen.Before(cutoff) {
						delete(buckets, ip)
					}
				}
				mu.Unlock()
			}
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		b, exists := buckets[ip]
		if !exists {
			b = &clientBucket{limiter: rate.NewLimiter(every, perMinute)}
			buckets[ip] = b
		}
		b.lastSeen = time.Now()
		allowed := b.limiter.Allow()
		mu.Unlock()

		if !allowed {
			m.Throttled(name)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewErrorResponse(message, nil))
			return
		}
		c.Next()
	}
}
