package middleware

import (
	"context"
	"net/http"

	"github.com/platinummonkey/gatekeeper/pkg/agents"
	"github.com/platinummonkey/gatekeeper/pkg/contextkeys"
	"github.com/platinummonkey/gatekeeper/pkg/httputil"
)

// AgentAuthenticator resolves agent credentials
type AgentAuthenticator interface {
	Authenticate(ctx context.Context, creds agents.Credentials) (*agents.AgentContext, error)
}

// AgentAuth authenticates machine callers by API key. It replaces the user
// identity path entirely.
func AgentAuth(gate AgentAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			agentCtx, err := gate.Authenticate(r.Context(), agents.CredentialsFromRequest(r))
			if err != nil {
				httputil.WriteAPIError(w, r, err)
				return
			}

			if s, ok := w.(httputil.UserIDSetter); ok {
				s.SetUserID("agent:" + agentCtx.AgentID)
			}

			ctx := contextkeys.WithAgent(r.Context(), agentCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAgent extracts the authenticated agent from the request
func GetAgent(r *http.Request) *agents.AgentContext {
	agentCtx, ok := r.Context().Value(contextkeys.AgentKey).(*agents.AgentContext)
	if !ok {
		return nil
	}
	return agentCtx
}
