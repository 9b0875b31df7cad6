// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// Keeping them in one package avoids import cycles between auth, orgs, agents
// and middleware, and makes each key's producer and consumers discoverable.
//
// USAGE PATTERN:
//
//	import "github.com/platinummonkey/gatekeeper/pkg/contextkeys"
//	ctx = contextkeys.WithUser(ctx, userCtx)
//	userCtx, _ := ctx.Value(contextkeys.UserKey).(*auth.UserContext)
package contextkeys

import (
	"context"
	"time"
)

// Key is the type for context keys to prevent collisions
type Key string

const (
	// UserKey contains *auth.UserContext
	// Set by: middleware.Authenticate (pkg/middleware/auth.go)
	// Required by: RequireRole, OrgContext, all user-facing API handlers
	// Type: *auth.UserContext
	UserKey Key = "user_context"

	// OrgKey contains *orgs.OrganizationContext
	// Set by: middleware.OrgContext (pkg/middleware/org.go)
	// Required by: Tenant-scoped endpoints
	// Type: *orgs.OrganizationContext
	OrgKey Key = "organization_context"

	// AgentKey contains *agents.AgentContext
	// Set by: middleware.AgentAuth (pkg/middleware/agent.go)
	// Required by: Agent-facing endpoints
	// Type: *agents.AgentContext
	AgentKey Key = "agent_context"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, error envelope
	// Type: string
	RequestIDKey Key = "request_id"

	// UserIDKey contains user ID string
	// Set by: Auth middleware after user authentication
	// Used by: Logger, rate limiter
	// Type: string
	UserIDKey Key = "user_id"

	// LoggerKey contains *logrus.Entry
	// Set by: httputil.LoggingMiddleware
	// Used by: Handlers that need structured logging with request context
	// Type: *logrus.Entry
	LoggerKey Key = "logger"

	// RequestStartTimeKey contains request start timestamp
	// Set by: httputil.LoggingMiddleware
	// Type: time.Time
	RequestStartTimeKey Key = "request_start_time"

	// DevModeKey contains the development-mode flag
	// Set by: httputil.DevModeMiddleware
	// Used by: httputil.WriteAPIError to expose internal error causes
	// Type: bool
	DevModeKey Key = "dev_mode"
)

// WithUser adds the authenticated user context to the context
func WithUser(ctx context.Context, userCtx interface{}) context.Context {
	return context.WithValue(ctx, UserKey, userCtx)
}

// WithOrg adds the resolved organization context to the context
func WithOrg(ctx context.Context, orgCtx interface{}) context.Context {
	return context.WithValue(ctx, OrgKey, orgCtx)
}

// WithAgent adds the authenticated agent context to the context
func WithAgent(ctx context.Context, agentCtx interface{}) context.Context {
	return context.WithValue(ctx, AgentKey, agentCtx)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// WithRequestStartTime adds request start time to the context
func WithRequestStartTime(ctx context.Context, startTime time.Time) context.Context {
	return context.WithValue(ctx, RequestStartTimeKey, startTime)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}

// GetRequestStartTime retrieves the request start time from context
func GetRequestStartTime(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(RequestStartTimeKey).(time.Time)
	return t, ok
}

// WithDevMode marks the context as serving in development mode
func WithDevMode(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, DevModeKey, enabled)
}

// IsDevMode reports whether the context is serving in development mode
func IsDevMode(ctx context.Context) bool {
	enabled, _ := ctx.Value(DevModeKey).(bool)
	return enabled
}
