package api

import (
	"net/http"

	"github.com/platinummonkey/gatekeeper/pkg/errx"
	"github.com/platinummonkey/gatekeeper/pkg/httputil"
	"github.com/platinummonkey/gatekeeper/pkg/middleware"
)

// IdentityHandlers exposes the caller's resolved identity
type IdentityHandlers struct{}

// NewIdentityHandlers creates identity handlers
func NewIdentityHandlers() *IdentityHandlers {
	return &IdentityHandlers{}
}

// Me returns the authenticated user and the organization context
func (h *IdentityHandlers) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		httputil.WriteAPIError(w, r, errx.ErrMissingCredential)
		return
	}

	_ = httputil.WriteSuccess(w, MeResponse{
		User:         user,
		Organization: middleware.GetOrgContext(r),
	})
}
