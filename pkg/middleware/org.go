package middleware

import (
	"context"
	"net/http"

	"github.com/platinummonkey/gatekeeper/pkg/auth"
	"github.com/platinummonkey/gatekeeper/pkg/contextkeys"
	"github.com/platinummonkey/gatekeeper/pkg/errx"
	"github.com/platinummonkey/gatekeeper/pkg/httputil"
	"github.com/platinummonkey/gatekeeper/pkg/orgs"
)

// HeaderOrganizationSource reports how the organization was selected
const HeaderOrganizationSource = "X-Organization-Source"

// OrganizationResolver selects the tenant for a user
type OrganizationResolver interface {
	Resolve(ctx context.Context, user *auth.UserContext, requestedOrgID string) (*orgs.OrganizationContext, error)
}

// OrgContext resolves the caller's organization. With required set, a
// request that resolves to no organization is rejected with
// ORGANIZATION_REQUIRED.
func OrgContext(resolver OrganizationResolver, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				httputil.WriteAPIError(w, r, errx.ErrMissingCredential)
				return
			}

			orgCtx, err := resolver.Resolve(r.Context(), user, r.Header.Get(orgs.HeaderOrganizationID))
			if err != nil {
				httputil.WriteAPIError(w, r, err)
				return
			}

			if required && !orgCtx.HasOrganization() {
				httputil.WriteAPIError(w, r, errx.ErrOrganizationRequired.
					WithDetail("available_organizations", orgCtx.AccessibleOrganizations))
				return
			}

			enriched := *user
			enriched.OrganizationID = orgCtx.OrganizationID
			enriched.AccessibleOrganizations = orgCtx.AccessibleOrganizations

			if orgCtx.HasOrganization() {
				w.Header().Set(orgs.HeaderOrganizationID, *orgCtx.OrganizationID)
				w.Header().Set(HeaderOrganizationSource, string(orgCtx.Source))
			}

			ctx := contextkeys.WithUser(r.Context(), &enriched)
			ctx = contextkeys.WithOrg(ctx, orgCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOrgContext extracts the resolved organization context from the request
func GetOrgContext(r *http.Request) *orgs.OrganizationContext {
	orgCtx, ok := r.Context().Value(contextkeys.OrgKey).(*orgs.OrganizationContext)
	if !ok {
		return nil
	}
	return orgCtx
}
