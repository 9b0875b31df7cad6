package orgs

import (
	"context"
	"time"

	"github.com/platinummonkey/gatekeeper/pkg/auth"
)

// OrgStatus represents organization status
type OrgStatus string

const (
	OrgStatusActive   OrgStatus = "active"
	OrgStatusInactive OrgStatus = "inactive"
)

// Organization represents a tenant
type Organization struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Domain    string         `json:"domain,omitempty"`
	Status    OrgStatus      `json:"status"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Membership links a user to an active organization
type Membership struct {
	UserID           string    `json:"user_id"`
	OrganizationID   string    `json:"organization_id"`
	OrganizationName string    `json:"organization_name"`
	IsDefault        bool      `json:"is_default"`
	JoinedAt         time.Time `json:"joined_at"`
}

// ResolutionSource records which rule selected the organization
type ResolutionSource string

const (
	SourceExplicit ResolutionSource = "explicit"
	SourceDefault  ResolutionSource = "default"
	SourceSingle   ResolutionSource = "single"
	SourceFirst    ResolutionSource = "first"
	SourceNone     ResolutionSource = "none"
)

// OrganizationContext is the per-request tenant resolution result
type OrganizationContext struct {
	OrganizationID          *string          `json:"organization_id"`
	OrganizationName        string           `json:"organization_name,omitempty"`
	AccessibleOrganizations []string         `json:"accessible_organizations"`
	Source                  ResolutionSource `json:"source"`

	// FallbackSelected is true when the organization was picked by the
	// single or first membership rule rather than chosen by the caller or
	// flagged as default.
	FallbackSelected bool `json:"fallback_selected"`

	// LookupFailed is true when memberships could not be loaded and the
	// request continued without a tenant.
	LookupFailed bool `json:"lookup_failed,omitempty"`
}

// HasOrganization reports whether a tenant was resolved
func (c *OrganizationContext) HasOrganization() bool {
	return c != nil && c.OrganizationID != nil
}

// MembershipLister loads a user's memberships in active organizations
type MembershipLister interface {
	ListUserMemberships(ctx context.Context, userID string) ([]*Membership, error)
}

// Service defines the interface for tenant storage
type Service interface {
	MembershipLister
	auth.UserDirectory

	GetOrganization(ctx context.Context, id string) (*Organization, error)
	ListOrganizations(ctx context.Context, ids []string) ([]*Organization, error)
	CreateOrganization(ctx context.Context, org *Organization) error
	AddMember(ctx context.Context, orgID, userID string, isDefault bool) error
	SetDefaultOrganization(ctx context.Context, userID, orgID string) error
}
