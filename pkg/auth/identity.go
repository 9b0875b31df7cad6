package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/gatekeeper/pkg/errx"
)

// Headers injected by the trusted upstream gateway
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserName  = "X-User-Name"
	HeaderUserRoles = "X-User-Roles"
)

// DemoTokenPrefix marks opaque development tokens
const DemoTokenPrefix = "demo-token-"

// Fixed development identity used when no identity provider is configured
const (
	DevUserID    = "dev-user"
	DevUserEmail = "dev@localhost"
	DevUsername  = "developer"
)

// TokenValidator verifies a raw bearer token
type TokenValidator interface {
	Verify(ctx context.Context, rawToken string) (*TokenClaims, error)
}

// DirectoryUser is a user record resolved by email in development mode
type DirectoryUser struct {
	ID    string
	Email string
	Name  string
	Roles []string
}

// UserDirectory looks up users by email
type UserDirectory interface {
	FindUserByEmail(ctx context.Context, email string) (*DirectoryUser, error)
}

// IdentityStrategy extracts an identity from a request. It returns
// (nil, false, nil) when it does not apply; a non-nil error is terminal.
type IdentityStrategy interface {
	Name() string
	Extract(r *http.Request) (*UserContext, bool, error)
}

// IdentityExtractor runs strategies in order and stops at the first one
// that applies
type IdentityExtractor struct {
	strategies []IdentityStrategy
	log        *logrus.Logger
}

// NewIdentityExtractor creates an extractor over an explicit strategy chain
func NewIdentityExtractor(log *logrus.Logger, strategies ...IdentityStrategy) *IdentityExtractor {
	if log == nil {
		log = logrus.New()
	}
	return &IdentityExtractor{strategies: strategies, log: log}
}

// ExtractorConfig selects the strategies for a deployment
type ExtractorConfig struct {
	// TrustGatewayHeaders enables the X-User-* header strategy
	TrustGatewayHeaders bool
	// Verifier is the identity provider's token verifier. Nil means no
	// identity provider is configured.
	Verifier TokenValidator
	// DevMode enables the development fallback when Verifier is nil
	DevMode bool
	// Directory resolves demo-token callers by email in development mode
	Directory UserDirectory
}

// BuildIdentityExtractor assembles the strategy chain for a deployment. The
// development fallback is only part of the chain in dev mode without a
// verifier; otherwise a request no strategy accepts fails with
// ErrMissingCredential.
func BuildIdentityExtractor(cfg ExtractorConfig, log *logrus.Logger) *IdentityExtractor {
	strategies := make([]IdentityStrategy, 0, 3)
	if cfg.TrustGatewayHeaders {
		strategies = append(strategies, GatewayHeaderStrategy{})
	}
	switch {
	case cfg.Verifier != nil:
		strategies = append(strategies, &BearerTokenStrategy{Verifier: cfg.Verifier})
	case cfg.DevMode:
		strategies = append(strategies, &DevFallbackStrategy{Directory: cfg.Directory, log: log})
	}
	return NewIdentityExtractor(log, strategies...)
}

// Strategies returns the names of the configured strategies in order
func (e *IdentityExtractor) Strategies() []string {
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = s.Name()
	}
	return names
}

// Extract returns the caller's identity or ErrMissingCredential when no
// strategy applies
func (e *IdentityExtractor) Extract(r *http.Request) (*UserContext, error) {
	for _, s := range e.strategies {
		user, ok, err := s.Extract(r)
		if err != nil {
			return nil, err
		}
		if ok {
			return user, nil
		}
	}
	return nil, errx.ErrMissingCredential
}

// GatewayHeaderStrategy trusts identity headers set by the upstream gateway
type GatewayHeaderStrategy struct{}

// Name implements IdentityStrategy
func (GatewayHeaderStrategy) Name() string { return string(SourceGateway) }

// Extract implements IdentityStrategy
func (GatewayHeaderStrategy) Extract(r *http.Request) (*UserContext, bool, error) {
	userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if userID == "" {
		return nil, false, nil
	}
	return newUserContext(
		userID,
		r.Header.Get(HeaderUserEmail),
		r.Header.Get(HeaderUserName),
		ParseRolesHeader(r.Header.Get(HeaderUserRoles)),
		SourceGateway,
	), true, nil
}

// BearerTokenStrategy verifies Authorization: Bearer tokens
type BearerTokenStrategy struct {
	Verifier TokenValidator
}

// Name implements IdentityStrategy
func (*BearerTokenStrategy) Name() string { return string(SourceToken) }

// Extract implements IdentityStrategy
func (s *BearerTokenStrategy) Extract(r *http.Request) (*UserContext, bool, error) {
	token, ok := BearerToken(r)
	if !ok {
		return nil, false, nil
	}

	claims, err := s.Verifier.Verify(r.Context(), token)
	if err != nil {
		return nil, false, err
	}

	return UserFromClaims(claims), true, nil
}

// UserFromClaims builds a UserContext from verified token claims
func UserFromClaims(claims *TokenClaims) *UserContext {
	username := claims.PreferredUsername
	if username == "" {
		username = claims.Name
	}
	if username == "" {
		username = claims.Email
	}
	return newUserContext(claims.Subject, claims.Email, username, ExtractRoles(claims), SourceToken)
}

// DevFallbackStrategy is only used when no identity provider is configured
type DevFallbackStrategy struct {
	Directory UserDirectory
	log       *logrus.Logger
}

// Name implements IdentityStrategy
func (*DevFallbackStrategy) Name() string { return string(SourceDev) }

// Extract implements IdentityStrategy. It always applies.
func (s *DevFallbackStrategy) Extract(r *http.Request) (*UserContext, bool, error) {
	if token, ok := BearerToken(r); ok && strings.HasPrefix(token, DemoTokenPrefix) {
		if email := strings.TrimSpace(r.Header.Get(HeaderUserEmail)); email != "" && s.Directory != nil {
			user, err := s.Directory.FindUserByEmail(r.Context(), email)
			if err == nil && user != nil {
				return newUserContext(user.ID, user.Email, user.Name, user.Roles, SourceDev), true, nil
			}
			if err != nil && s.log != nil {
				s.log.WithError(err).WithField("email", email).Debug("Demo user lookup failed, using development identity")
			}
		}
	}

	return DevIdentity(), true, nil
}

// DevIdentity returns the synthetic development identity
func DevIdentity() *UserContext {
	return newUserContext(DevUserID, DevUserEmail, DevUsername, []string{string(RoleAdmin)}, SourceDev)
}

// BearerToken returns the token from an Authorization: Bearer header
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// ParseRolesHeader accepts a JSON array or a comma-separated list
func ParseRolesHeader(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if strings.HasPrefix(value, "[") {
		var roles []string
		if err := json.Unmarshal([]byte(value), &roles); err == nil {
			return dedupe(roles)
		}
	}

	return dedupe(strings.Split(value, ","))
}
