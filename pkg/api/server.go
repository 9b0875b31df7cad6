package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/gatekeeper/pkg/agents"
	"github.com/platinummonkey/gatekeeper/pkg/auth"
	"github.com/platinummonkey/gatekeeper/pkg/httputil"
	"github.com/platinummonkey/gatekeeper/pkg/middleware"
	"github.com/platinummonkey/gatekeeper/pkg/observability"
	"github.com/platinummonkey/gatekeeper/pkg/orgs"
	"github.com/platinummonkey/gatekeeper/pkg/regcodes"
)

const apiPrefix = "/api/v1"

// OrganizationStore reads organizations and updates a user's default
type OrganizationStore interface {
	ListOrganizations(ctx context.Context, ids []string) ([]*orgs.Organization, error)
	SetDefaultOrganization(ctx context.Context, userID, orgID string) error
}

// AgentProvisioner registers agents with registration codes
type AgentProvisioner interface {
	Provision(ctx context.Context, req agents.ProvisionRequest) (*agents.ProvisionResult, error)
}

// AgentLookup finds agents by their public id
type AgentLookup interface {
	GetByAgentID(ctx context.Context, agentID string) (*agents.Agent, error)
}

// Dependencies are the collaborators the API routes are built from
type Dependencies struct {
	Log *logrus.Logger

	Identity      middleware.IdentityExtractor
	Resolver      middleware.OrganizationResolver
	Organizations OrganizationStore
	Codes         *regcodes.Manager
	Gate          middleware.AgentAuthenticator
	Provisioner   AgentProvisioner
	Agents        AgentLookup

	Health  *observability.HealthChecker
	Metrics *observability.Metrics

	// RateLimit is applied after authentication so callers are keyed by
	// agent or user; nil disables rate limiting
	RateLimit func(http.Handler) http.Handler

	DevMode      bool
	MaxBodyBytes int64
}

// Server is the gatekeeper HTTP API
type Server struct {
	deps    Dependencies
	log     *logrus.Logger
	router  *mux.Router
	handler http.Handler

	identity *IdentityHandlers
	orgs     *OrgHandlers
	codes    *RegistrationCodeHandlers
	agents   *AgentHandlers
}

// NewServer builds the router and registers every route
func NewServer(deps Dependencies) *Server {
	if deps.Log == nil {
		deps.Log = logrus.New()
	}
	if deps.RateLimit == nil {
		deps.RateLimit = func(next http.Handler) http.Handler { return next }
	}

	s := &Server{
		deps:     deps,
		log:      deps.Log,
		router:   mux.NewRouter(),
		identity: NewIdentityHandlers(),
		orgs:     NewOrgHandlers(deps.Organizations),
		codes:    NewRegistrationCodeHandlers(deps.Codes),
		agents:   NewAgentHandlers(deps.Provisioner, deps.Agents),
	}
	s.setupRoutes()
	s.handler = s.buildHandler()
	return s
}

func (s *Server) setupRoutes() {
	s.router.NotFoundHandler = http.HandlerFunc(notFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	if s.deps.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.deps.Metrics))
	}
	if s.deps.Health != nil {
		observability.RegisterHealthRoutes(s.router, s.deps.Health)
	}

	// Routes are registered on the root router with full paths; a
	// PathPrefix subrouter loses method mismatches and answers 404.
	v1 := func(path string, h http.Handler, methods ...string) {
		s.router.Handle(apiPrefix+path, h).Methods(methods...)
	}

	// Identity and tenancy
	v1("/me", s.user(s.identity.Me), http.MethodGet)
	v1("/organizations", s.user(s.orgs.ListOrganizations), http.MethodGet)
	v1("/organizations/current", s.tenant(s.orgs.Current), http.MethodGet)
	v1("/organizations/{id}/default", s.user(s.orgs.SetDefault), http.MethodPut)

	// Registration codes
	v1("/registration-codes", s.user(s.codes.Issue, middleware.RequireRole(auth.RoleAgent)), http.MethodPost)
	v1("/registration-codes", s.user(s.codes.List), http.MethodGet)
	v1("/registration-codes/{code}", s.user(s.codes.Get), http.MethodGet)
	v1("/registration-codes/{id}", s.user(s.codes.Revoke), http.MethodDelete)

	// Agents
	v1("/agents/register", s.public(s.agents.Register), http.MethodPost)
	v1("/agents/self", s.agent(s.agents.Self), http.MethodGet)
	v1("/agents/{agent_id}", s.user(s.agents.Get), http.MethodGet)
}

// user wraps a handler for authenticated user traffic with an optional
// organization context
func (s *Server) user(h http.HandlerFunc, extra ...func(http.Handler) http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		middleware.Authenticate(s.deps.Identity),
		middleware.OrgContext(s.deps.Resolver, false),
		s.deps.RateLimit,
	}
	return httputil.Chain(append(chain, extra...)...)(h)
}

// tenant wraps a handler for user traffic that must run against an
// organization
func (s *Server) tenant(h http.HandlerFunc) http.Handler {
	return httputil.Chain(
		middleware.Authenticate(s.deps.Identity),
		middleware.OrgContext(s.deps.Resolver, true),
		s.deps.RateLimit,
	)(h)
}

// agent wraps a handler for API-key authenticated machine traffic
func (s *Server) agent(h http.HandlerFunc) http.Handler {
	return httputil.Chain(middleware.AgentAuth(s.deps.Gate), s.deps.RateLimit)(h)
}

// public wraps an unauthenticated handler, rate limited by client address
func (s *Server) public(h http.HandlerFunc) http.Handler {
	return s.deps.RateLimit(h)
}

// Router returns the route table without the outer middleware
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the router wrapped with the outer middleware
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) buildHandler() http.Handler {
	chain := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.log),
		httputil.RecoveryMiddleware(s.log),
		httputil.DevModeMiddleware(s.deps.DevMode),
	}
	if s.deps.MaxBodyBytes > 0 {
		chain = append(chain, httputil.MaxBytesMiddleware(s.deps.MaxBodyBytes))
	}

	return otelhttp.NewHandler(httputil.Chain(chain...)(s.router), "gatekeeper",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method
		}),
	)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
