package api

import (
	"github.com/platinummonkey/gatekeeper/pkg/auth"
	"github.com/platinummonkey/gatekeeper/pkg/orgs"
	"github.com/platinummonkey/gatekeeper/pkg/regcodes"
)

// MeResponse describes the caller and the tenant selected for the request
type MeResponse struct {
	User         *auth.UserContext         `json:"user"`
	Organization *orgs.OrganizationContext `json:"organization"`
}

// OrganizationSummary is an organization the caller belongs to
type OrganizationSummary struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Domain  string         `json:"domain,omitempty"`
	Status  orgs.OrgStatus `json:"status"`
	Current bool           `json:"current"`
}

// OrganizationListResponse lists the caller's organizations
type OrganizationListResponse struct {
	Organizations         []OrganizationSummary `json:"organizations"`
	CurrentOrganizationID *string               `json:"current_organization_id"`
}

// CurrentOrganizationResponse is the organization a tenant-scoped request
// runs against
type CurrentOrganizationResponse struct {
	Organization     OrganizationSummary   `json:"organization"`
	Source           orgs.ResolutionSource `json:"source"`
	FallbackSelected bool                  `json:"fallback_selected"`
}

// DefaultOrganizationResponse confirms a default organization change
type DefaultOrganizationResponse struct {
	OrganizationID string `json:"organization_id"`
	IsDefault      bool   `json:"is_default"`
}

// RegistrationCodeListResponse lists registration codes
type RegistrationCodeListResponse struct {
	Codes []*regcodes.CodeView `json:"codes"`
	Count int                  `json:"count"`
}
