package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/shared/server/respond"
	"docflow-backend/internal/shared/telemetry"
)

const (
	defaultRateLimitGroup = "DEFAULT"
	bucketIdleTTL         = 10 * time.Minute
	sweepEvery            = 1024
)

// RateLimitRule is a token bucket refilled at Rate tokens per second.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

// RateLimitConfig maps route groups to rules. Requests in a group with no rule pass.
// KeyFor defaults to the authenticated user ID, falling back to the client IP.
type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	KeyFor       func(*gin.Context) string
	Limiter      *RateLimiter
}

// RateLimiter holds one token bucket per caller and group.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	now     func() time.Time
	calls   int
}

type tokenBucket struct {
	tokens float64
	seen   time.Time
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{buckets: map[string]*tokenBucket{}, now: now}
}

func callerKey(c *gin.Context) string {
	if id := strings.TrimSpace(UserIDFromContext(c)); id != "" {
		return "user:" + id
	}
	return "ip:" + c.ClientIP()
}

// RateLimit throttles callers per group and answers 429 with Retry-After.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(nil)
	}
	defaultGroup := cfg.DefaultGroup
	if defaultGroup == "" {
		defaultGroup = defaultRateLimitGroup
	}
	keyFor := cfg.KeyFor
	if keyFor == nil {
		keyFor = callerKey
	}

	return func(c *gin.Context) {
		group := defaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}

		key := keyFor(c)
		allowed, wait := limiter.Allow(group+"|"+key, rule)
		if allowed {
			c.Next()
			return
		}

		waitMs := max(int(wait/time.Millisecond), 1)
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(float64(waitMs)/1000))))
		telemetry.Warn("rate_limit.throttled", map[string]any{
			"group":      group,
			"key":        key,
			"route":      c.FullPath(),
			"request_id": RequestIDFromContext(c),
		})
		respond.Error(c, http.StatusTooManyRequests, "Too many requests, please try again later", gin.H{
			"group":        group,
			"retryAfterMs": waitMs,
		})
	}
}

// Allow takes a token for key. When the bucket is empty it reports how long
// until the next token. Rules with a non-positive rate or burst never throttle.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls%sweepEvery == 0 {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: float64(rule.Burst), seen: now}
		l.buckets[key] = b
	} else if dt := now.Sub(b.seen); dt > 0 {
		b.tokens = math.Min(float64(rule.Burst), b.tokens+dt.Seconds()*rule.Rate)
		b.seen = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := math.Max(0, (1-b.tokens)/rule.Rate)
	return false, time.Duration(math.Ceil(wait*1000)) * time.Millisecond
}

// sweep drops buckets idle long enough to have refilled.
func (l *RateLimiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.seen) > bucketIdleTTL {
			delete(l.buckets, k)
		}
	}
}
