package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/response"
	"golang.org/x/time/rate"
)

// AttemptRateLimiter hands out one token bucket per key. Security event reports are
// limited per attempt so a misbehaving client cannot flood the log.
type AttemptRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewAttemptRateLimiter allows one event per interval with the given burst.
func NewAttemptRateLimiter(interval time.Duration, burst int) *AttemptRateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &AttemptRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(interval),
		burst:    burst,
		idle:     3 * time.Minute,
	}

	// Cleanup stale visitors every minute.
	go func() {
		for range time.Tick(time.Minute) {
			rl.cleanup()
		}
	}()

	return rl
}

// Allow reports whether key may proceed now.
func (rl *AttemptRateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()

	return v.limiter.Allow()
}

// AttemptAllow applies the limiter to the student's bucket for an attempt.
func (rl *AttemptRateLimiter) AttemptAllow(studentID int, attemptID string) bool {
	return rl.Allow(config.CacheKey.AttemptRateKey(studentID, attemptID))
}

// PerAttempt limits requests by the caller and the :attempt_id path
// parameter. It must run after JWTAuth.
func (rl *AttemptRateLimiter) PerAttempt() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if !rl.AttemptAllow(claims.UserID, c.Param("attempt_id")) {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

func (rl *AttemptRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, v := range rl.visitors {
		if time.Since(v.lastSeen) > rl.idle {
			delete(rl.visitors, key)
		}
	}
}
