package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/gatekeeper/pkg/errx"
	"github.com/platinummonkey/gatekeeper/pkg/httputil"
)

// DistributedRateLimiter implements rate limiting using Redis
// This allows rate limits to be shared across multiple instances
type DistributedRateLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
	prefix string
}

// NewDistributedRateLimiter creates a new Redis-backed rate limiter
func NewDistributedRateLimiter(redisClient *redis.Client, config *RateLimitConfig, prefix string) *DistributedRateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if prefix == "" {
		prefix = "gatekeeper:ratelimit"
	}

	return &DistributedRateLimiter{
		redis:  redisClient,
		config: config,
		prefix: prefix,
	}
}

// Allow counts a request against key's fixed window
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	// INCR and PTTL in one round trip; the window is set on the first hit
	pipe := rl.redis.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.PTTL(ctx, redisKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return rl.failOpen(), fmt.Errorf("redis error: %w", err)
	}

	window := ttl.Val()
	// A counter without a TTL (first hit, or an EXPIRE that never landed)
	// starts a fresh window
	if incr.Val() == 1 || window < 0 {
		if err := rl.redis.PExpire(ctx, redisKey, rl.config.WindowDuration).Err(); err != nil {
			return rl.failOpen(), fmt.Errorf("redis error: %w", err)
		}
		window = rl.config.WindowDuration
	}

	return decide(rl.config, incr.Val(), time.Now().Add(window)), nil
}

func (rl *DistributedRateLimiter) failOpen() Decision {
	return Decision{Allowed: true, Limit: rl.config.RequestsPerWindow, Remaining: rl.config.RequestsPerWindow}
}

// Reset clears the rate limit for a key (for testing or admin purposes)
func (rl *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)
	return rl.redis.Del(ctx, redisKey).Err()
}

// DistributedRateLimitMiddleware provides HTTP rate limiting with Redis
type DistributedRateLimitMiddleware struct {
	redis           *redis.Client
	limiters        limiterSet
	log             *logrus.Logger
	fallbackEnabled bool
}

// NewDistributedRateLimitMiddleware creates a new Redis-backed rate limit middleware
func NewDistributedRateLimitMiddleware(redisClient *redis.Client, policy RateLimitPolicy, log *logrus.Logger) *DistributedRateLimitMiddleware {
	if log == nil {
		log = logrus.New()
	}
	return &DistributedRateLimitMiddleware{
		redis: redisClient,
		limiters: limiterSet{
			anonymous: NewDistributedRateLimiter(redisClient, policy.Anonymous, "gatekeeper:ratelimit:anon"),
			user:      NewDistributedRateLimiter(redisClient, policy.User, "gatekeeper:ratelimit:user"),
			agent:     NewDistributedRateLimiter(redisClient, policy.Agent, "gatekeeper:ratelimit:agent"),
			proxies:   policy.TrustedProxies,
		},
		log:             log,
		fallbackEnabled: true, // Fail open on Redis errors
	}
}

// Handler wraps an HTTP handler with distributed rate limiting
func (m *DistributedRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter, key := m.limiters.selectLimiter(r)

		decision, err := limiter.Allow(r.Context(), key)
		if err != nil {
			m.log.WithError(err).WithField("key", key).Warn("Rate limiter unavailable")
			if m.fallbackEnabled {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteAPIError(w, r, errx.New(errx.CodeUnavailable, "rate limiting is temporarily unavailable"))
			return
		}

		if !writeRateLimitHeaders(w, r, decision) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetFallbackEnabled controls whether to fail open (true) or closed (false) on Redis errors
func (m *DistributedRateLimitMiddleware) SetFallbackEnabled(enabled bool) {
	m.fallbackEnabled = enabled
}

// HealthCheck verifies Redis connectivity for rate limiting
func (m *DistributedRateLimitMiddleware) HealthCheck(ctx context.Context) error {
	return m.redis.Ping(ctx).Err()
}
