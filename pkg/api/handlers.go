package api

import (
	"net/http"

	"github.com/platinummonkey/gatekeeper/pkg/errx"
	"github.com/platinummonkey/gatekeeper/pkg/httputil"
)

func notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteAPIError(w, r, errx.New(errx.CodeResourceNotFound, "route not found"))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	_, envelope := httputil.NewErrorEnvelope(r, errx.New(errx.CodeValidationFailed, "method not allowed").
		WithDetail("method", r.Method))
	_ = httputil.WriteJSON(w, http.StatusMethodNotAllowed, envelope)
}
