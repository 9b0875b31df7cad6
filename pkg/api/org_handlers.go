package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/gatekeeper/pkg/errx"
	"github.com/platinummonkey/gatekeeper/pkg/httputil"
	"github.com/platinummonkey/gatekeeper/pkg/middleware"
	"github.com/platinummonkey/gatekeeper/pkg/observability"
	"github.com/platinummonkey/gatekeeper/pkg/orgs"
)

// OrgHandlers handles organization-related HTTP requests
type OrgHandlers struct {
	store OrganizationStore
}

// NewOrgHandlers creates a new OrgHandlers
func NewOrgHandlers(store OrganizationStore) *OrgHandlers {
	return &OrgHandlers{store: store}
}

// ListOrganizations returns the organizations the caller can access
func (h *OrgHandlers) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgCtx := middleware.GetOrgContext(r)
	if orgCtx == nil {
		httputil.WriteAPIError(w, r, errx.ErrMissingCredential)
		return
	}
	if orgCtx.LookupFailed {
		httputil.WriteAPIError(w, r, errx.ErrInternalLookupFailure)
		return
	}

	summaries := make([]OrganizationSummary, 0, len(orgCtx.AccessibleOrganizations))
	if len(orgCtx.AccessibleOrganizations) > 0 {
		organizations, err := h.store.ListOrganizations(r.Context(), orgCtx.AccessibleOrganizations)
		if err != nil {
			httputil.WriteAPIError(w, r, errx.Wrap(errx.ErrInternalLookupFailure, err))
			return
		}
		for _, o := range organizations {
			summaries = append(summaries, OrganizationSummary{
				ID:      o.ID,
				Name:    o.Name,
				Domain:  o.Domain,
				Status:  o.Status,
				Current: orgCtx.HasOrganization() && *orgCtx.OrganizationID == o.ID,
			})
		}
	}

	_ = httputil.WriteSuccess(w, OrganizationListResponse{
		Organizations:         summaries,
		CurrentOrganizationID: orgCtx.OrganizationID,
	})
}

// Current returns the organization the request resolved to. It is mounted
// behind a tenant-required organization context.
func (h *OrgHandlers) Current(w http.ResponseWriter, r *http.Request) {
	orgCtx := middleware.GetOrgContext(r)
	if !orgCtx.HasOrganization() {
		httputil.WriteAPIError(w, r, errx.ErrOrganizationRequired)
		return
	}

	orgID := *orgCtx.OrganizationID
	organizations, err := h.store.ListOrganizations(r.Context(), []string{orgID})
	if err != nil {
		httputil.WriteAPIError(w, r, errx.Wrap(errx.ErrInternalLookupFailure, err))
		return
	}
	if len(organizations) == 0 {
		httputil.WriteAPIError(w, r, errx.New(errx.CodeResourceNotFound, "organization not found").
			WithDetail("organization_id", orgID))
		return
	}

	o := organizations[0]
	_ = httputil.WriteSuccess(w, CurrentOrganizationResponse{
		Organization: OrganizationSummary{
			ID:      o.ID,
			Name:    o.Name,
			Domain:  o.Domain,
			Status:  o.Status,
			Current: true,
		},
		Source:           orgCtx.Source,
		FallbackSelected: orgCtx.FallbackSelected,
	})
}

// SetDefault makes an organization the caller belongs to their default
func (h *OrgHandlers) SetDefault(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	user := middleware.GetUser(r)
	orgCtx := middleware.GetOrgContext(r)
	if user == nil || orgCtx == nil {
		httputil.WriteAPIError(w, r, errx.ErrMissingCredential)
		return
	}
	if orgCtx.LookupFailed {
		httputil.WriteAPIError(w, r, errx.ErrInternalLookupFailure)
		return
	}

	// Membership is checked before the store clears the current default
	if !contains(orgCtx.AccessibleOrganizations, orgID) {
		httputil.WriteAPIError(w, r, errx.ErrOrganizationAccessDenied.
			WithDetail("requested_organization", orgID).
			WithDetail("available_organizations", orgCtx.AccessibleOrganizations))
		return
	}

	if err := h.store.SetDefaultOrganization(r.Context(), user.UserID, orgID); err != nil {
		if errors.Is(err, orgs.ErrNotMember) {
			httputil.WriteAPIError(w, r, errx.ErrOrganizationAccessDenied.WithDetail("requested_organization", orgID))
			return
		}
		httputil.WriteAPIError(w, r, errx.Wrap(errx.ErrInternalLookupFailure, err))
		return
	}

	observability.FromContext(r.Context()).WithField("organization_id", orgID).Info("Default organization changed")
	_ = httputil.WriteSuccess(w, DefaultOrganizationResponse{OrganizationID: orgID, IsDefault: true})
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
