package api

import (
	"net/http"

	"github.com/platinummonkey/gatekeeper/pkg/httputil"
	"github.com/platinummonkey/gatekeeper/pkg/middleware"
	"github.com/platinummonkey/gatekeeper/pkg/regcodes"
)

// RegistrationCodeHandlers handles registration code HTTP requests
type RegistrationCodeHandlers struct {
	codes *regcodes.Manager
}

// NewRegistrationCodeHandlers creates registration code handlers
func NewRegistrationCodeHandlers(codes *regcodes.Manager) *RegistrationCodeHandlers {
	return &RegistrationCodeHandlers{codes: codes}
}

// Issue creates a registration code owned by the caller
func (h *RegistrationCodeHandlers) Issue(w http.ResponseWriter, r *http.Request) {
	var req regcodes.IssueRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	view, err := h.codes.Issue(r.Context(), middleware.GetUser(r), req)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	_ = httputil.WriteCreated(w, view)
}

// List returns the caller's codes, or every code for admins
func (h *RegistrationCodeHandlers) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.codes.List(r.Context(), middleware.GetUser(r))
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	_ = httputil.WriteSuccess(w, RegistrationCodeListResponse{Codes: views, Count: len(views)})
}

// Get returns a single code by its value
func (h *RegistrationCodeHandlers) Get(w http.ResponseWriter, r *http.Request) {
	code, ok := httputil.ParsePathStringOrError(w, r, "code")
	if !ok {
		return
	}

	view, err := h.codes.Get(r.Context(), middleware.GetUser(r), code)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	_ = httputil.WriteSuccess(w, view)
}

// Revoke revokes an active code by id
func (h *RegistrationCodeHandlers) Revoke(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	view, err := h.codes.Revoke(r.Context(), middleware.GetUser(r), id)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	_ = httputil.WriteSuccess(w, view)
}
