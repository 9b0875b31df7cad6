// Package middleware provides HTTP middleware for authentication, authorization,
// tenant resolution and rate limiting.
//
// # Overview
//
// User traffic passes through Authenticate, optionally RequireRole, then
// OrgContext. Agent traffic passes through AgentAuth instead. Rate limiting
// runs after authentication so limits are keyed by caller.
//
// # Middleware Components
//
// Authenticate: identity extraction
//
//	router.Use(middleware.Authenticate(extractor))
//	// Runs the identity strategies, adds *auth.UserContext to the request
//
// RequireRole: role gate
//
//	admin.Use(middleware.RequireRole(auth.RoleAdmin))
//	// 401 without identity, 403 when the role ranks too low
//
// OrgContext: tenant resolution
//
//	router.Use(middleware.OrgContext(resolver, false))
//	// Honors X-Organization-Id, falls back to default/single/first membership
//
// AgentAuth: API key authentication
//
//	agents.Use(middleware.AgentAuth(gate))
//
// RateLimitMiddleware / DistributedRateLimitMiddleware: per caller limits
//
//	limiter := middleware.NewDistributedRateLimitMiddleware(redisClient, logger)
//	router.Use(limiter.Handler)
//
// # Rate Limiting
//
// Default (Anonymous): 100 req/min
// Per-User: 1000 req/min
// Per-Agent: 5000 req/min
//
// # Related Packages
//
//   - pkg/auth: Identity extraction and roles
//   - pkg/orgs: Tenant resolution
//   - pkg/agents: Agent credential gate
package middleware
