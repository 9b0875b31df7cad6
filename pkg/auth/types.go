package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the internal role used for authorization decisions
type Role string

const (
	RoleAdmin Role = "admin" // Full access, sees every tenant's registration codes
	RoleAgent Role = "agent" // Machine callers and operators acting for them
	RoleUser  Role = "user"  // Default for any authenticated identity
)

// IdentitySource records which strategy produced a UserContext
type IdentitySource string

const (
	SourceGateway IdentitySource = "gateway"
	SourceToken   IdentitySource = "token"
	SourceDev     IdentitySource = "dev"
)

// TokenClaims is the validated content of an identity-provider token
type TokenClaims struct {
	Subject           string    `json:"sub"`
	Email             string    `json:"email,omitempty"`
	PreferredUsername string    `json:"preferred_username,omitempty"`
	Name              string    `json:"name,omitempty"`
	Issuer            string    `json:"iss"`
	Audience          []string  `json:"aud,omitempty"`
	IssuedAt          time.Time `json:"iat,omitempty"`
	ExpiresAt         time.Time `json:"exp"`

	// Role claim locations, harvested by ExtractRoles
	Roles         []string            `json:"roles,omitempty"`
	RealmRoles    []string            `json:"realm_roles,omitempty"`
	ResourceRoles map[string][]string `json:"resource_roles,omitempty"`

	// Raw holds every claim as decoded from the payload
	Raw jwt.MapClaims `json:"-"`
}

// UserContext is the per-request identity attached by the authentication
// middleware. It is never persisted.
type UserContext struct {
	UserID   string         `json:"user_id"`
	Email    string         `json:"email,omitempty"`
	Username string         `json:"username,omitempty"`
	Roles    []string       `json:"roles"`
	Role     Role           `json:"role"`
	Source   IdentitySource `json:"source"`

	// Filled in by tenant resolution
	OrganizationID          *string  `json:"organization_id,omitempty"`
	AccessibleOrganizations []string `json:"accessible_organizations,omitempty"`
}

// HasRole reports whether the user meets the required role
func (u *UserContext) HasRole(required Role) bool {
	if u == nil {
		return false
	}
	return HasRole(u.Role, required)
}

// IsAdmin reports whether the user is an administrator
func (u *UserContext) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// newUserContext builds a UserContext from a raw role list
func newUserContext(userID, email, username string, roles []string, source IdentitySource) *UserContext {
	roles = dedupe(roles)
	return &UserContext{
		UserID:   userID,
		Email:    email,
		Username: username,
		Roles:    roles,
		Role:     MapRoles(roles),
		Source:   source,
	}
}
