package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/platinummonkey/gatekeeper/pkg/errx"
	"github.com/platinummonkey/gatekeeper/pkg/httputil"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
}

// DefaultRateLimitConfig returns limits for anonymous callers
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 100,
		WindowDuration:    time.Minute,
	}
}

// PerUserRateLimitConfig returns per-user rate limit settings
func PerUserRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 1000,
		WindowDuration:    time.Minute,
	}
}

// PerAgentRateLimitConfig returns rate limits for agents (more generous)
func PerAgentRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 5000,
		WindowDuration:    time.Minute,
	}
}

// RateLimitPolicy holds the limits for each caller class
type RateLimitPolicy struct {
	Anonymous *RateLimitConfig
	User      *RateLimitConfig
	Agent     *RateLimitConfig

	// TrustedProxies are the peers whose X-Forwarded-For and X-Real-IP
	// headers name the client. Empty means the remote address is used.
	TrustedProxies []*net.IPNet
}

// ParseTrustedProxies parses CIDRs or bare addresses into networks
func ParseTrustedProxies(values []string) ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if !strings.Contains(v, "/") {
			ip := net.ParseIP(v)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", v)
			}
			bits := 128
			if ip.To4() != nil {
				ip = ip.To4()
				bits = 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, cidr, err := net.ParseCIDR(v)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", v, err)
		}
		nets = append(nets, cidr)
	}
	return nets, nil
}

// DefaultRateLimitPolicy returns the default limits
func DefaultRateLimitPolicy() RateLimitPolicy {
	return RateLimitPolicy{
		Anonymous: DefaultRateLimitConfig(),
		User:      PerUserRateLimitConfig(),
		Agent:     PerAgentRateLimitConfig(),
	}
}

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter counts requests per key in fixed windows
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RateLimiter is an in-memory fixed window limiter for single-instance
// deployments
type RateLimiter struct {
	config  *RateLimitConfig
	windows map[string]*window
	mu      sync.Mutex
	now     func() time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	return &RateLimiter{
		config:  config,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow checks if a request is allowed for the given key
func (rl *RateLimiter) Allow(_ context.Context, key string) (Decision, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(rl.config.WindowDuration)}
		rl.windows[key] = w
	}
	w.count++

	return decide(rl.config, int64(w.count), w.resetAt), nil
}

// Cleanup removes expired windows (should be called periodically)
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, w := range rl.windows {
		if !now.Before(w.resetAt) {
			delete(rl.windows, key)
		}
	}
}

// StartCleanup starts a background goroutine to cleanup expired windows
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.config.WindowDuration)
	go func() {
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
}

func decide(config *RateLimitConfig, count int64, resetAt time.Time) Decision {
	remaining := config.RequestsPerWindow - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(config.RequestsPerWindow),
		Limit:     config.RequestsPerWindow,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// limiterSet selects a limiter by caller class
type limiterSet struct {
	anonymous Limiter
	user      Limiter
	agent     Limiter
	proxies   []*net.IPNet
}

// selectLimiter keys the request by agent, then user, then client IP
func (s limiterSet) selectLimiter(r *http.Request) (Limiter, string) {
	if agentCtx := GetAgent(r); agentCtx != nil {
		return s.agent, "agent:" + agentCtx.AgentID
	}
	if user := GetUser(r); user != nil {
		return s.user, "user:" + user.UserID
	}
	return s.anonymous, "ip:" + getClientIP(r, s.proxies)
}

// RateLimitMiddleware provides HTTP rate limiting with in-memory counters
type RateLimitMiddleware struct {
	limiters limiterSet
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(policy RateLimitPolicy) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiters: limiterSet{
		anonymous: NewRateLimiter(policy.Anonymous),
		user:      NewRateLimiter(policy.User),
		agent:     NewRateLimiter(policy.Agent),
		proxies:   policy.TrustedProxies,
	}}
}

// StartCleanup starts periodic cleanup of every limiter
func (m *RateLimitMiddleware) StartCleanup(ctx context.Context) {
	for _, l := range []Limiter{m.limiters.anonymous, m.limiters.user, m.limiters.agent} {
		if rl, ok := l.(*RateLimiter); ok {
			rl.StartCleanup(ctx)
		}
	}
}

// Handler wraps an HTTP handler with rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter, key := m.limiters.selectLimiter(r)
		decision, _ := limiter.Allow(r.Context(), key)
		if !writeRateLimitHeaders(w, r, decision) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeRateLimitHeaders sets the X-RateLimit headers and writes the 429
// response when the request is over the limit. It reports whether the
// request may proceed.
func writeRateLimitHeaders(w http.ResponseWriter, r *http.Request, d Decision) bool {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	if !d.ResetAt.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	}
	if d.Allowed {
		return true
	}

	retryAfter := int(time.Until(d.ResetAt).Seconds() + 0.5)
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	httputil.WriteAPIError(w, r, errx.New(errx.CodeRateLimited, "rate limit exceeded").
		WithDetail("retry_after", retryAfter))
	return false
}

// getClientIP returns the remote address without its port. When the peer
// is a trusted proxy the first X-Forwarded-For hop or X-Real-IP is used
// instead.
func getClientIP(r *http.Request, trusted []*net.IPNet) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}

	if !isTrustedProxy(remote, trusted) {
		return remote
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	return remote
}

func isTrustedProxy(addr string, trusted []*net.IPNet) bool {
	if len(trusted) == 0 {
		return false
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
