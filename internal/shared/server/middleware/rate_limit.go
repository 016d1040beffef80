package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"smartcv-backend/internal/shared/metrics"
	"smartcv-backend/internal/shared/server/respond"
)

const defaultRateLimitGroup = "DEFAULT"

// RateLimitRule is a token bucket: Rate tokens per second, up to Burst.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

func (r RateLimitRule) disabled() bool {
	return r.Rate <= 0 || r.Burst <= 0
}

// RateLimitConfig maps route groups to rules. GroupFor picks the group of a
// request; unmatched requests fall into DefaultGroup.
type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      *RateLimiter
}

// RateLimiter keeps one x/time/rate limiter per client and group.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	now      func() time.Time
}

// NewRateLimiter builds an empty limiter set. now is injectable for tests.
func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		now:      now,
	}
}

// RateLimit throttles requests per client IP and route group. Throttled
// requests get 429 with Retry-After and retryAfterMs.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	return func(c *gin.Context) {
		group := cfg.DefaultGroup
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

		allowed, retryAfter := cfg.Limiter.Allow(c.ClientIP()+"|"+group, rule)
		if allowed {
			c.Next()
			return
		}

		metrics.IncRateLimited(group)
		retryAfterMs := int(retryAfter / time.Millisecond)
		if retryAfterMs <= 0 {
			retryAfterMs = 1000
		}
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(float64(retryAfterMs)/1000))))
		respond.ErrorWith(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, please try again later", gin.H{
			"retryAfterMs": retryAfterMs,
		})
	}
}

// Allow takes one token for key. When the bucket is empty it reports how long
// until the next token.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || rule.disabled() {
		return true, 0
	}
	now := l.now()
	lim := l.limiterFor(key, rule)
	if lim.AllowN(now, 1) {
		return true, 0
	}
	missing := 1 - lim.TokensAt(now)
	wait := time.Duration(math.Ceil(missing/rule.Rate*1000)) * time.Millisecond
	return false, max(wait, time.Millisecond)
}

func (l *RateLimiter) limiterFor(key string, rule RateLimitRule) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(rule.Rate), rule.Burst)
		l.limiters[key] = lim
	}
	return lim
}
