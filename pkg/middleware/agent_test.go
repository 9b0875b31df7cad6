package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/gatekeeper/pkg/agents"
	"github.com/platinummonkey/gatekeeper/pkg/errx"
)

type stubGate struct {
	seen agents.Credentials
	ctx  *agents.AgentContext
	err  error
}

func (g *stubGate) Authenticate(_ context.Context, creds agents.Credentials) (*agents.AgentContext, error) {
	g.seen = creds
	return g.ctx, g.err
}

func TestAgentAuth(t *testing.T) {
	t.Run("attaches agent", func(t *testing.T) {
		gate := &stubGate{ctx: &agents.AgentContext{ID: "row-1", AgentID: "build-01"}}
		var got *agents.AgentContext
		handler := AgentAuth(gate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetAgent(r)
			assert.Nil(t, GetUser(r))
		}))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(agents.HeaderAPIKey, "gk_key")
		r.Header.Set(agents.HeaderAgentID, "build-01")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		require.NotNil(t, got)
		assert.Equal(t, "build-01", got.AgentID)
		assert.Equal(t, agents.Credentials{APIKey: "gk_key", AgentIDHint: "build-01"}, gate.seen)
	})

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"wrong prefix", errx.ErrInvalidCredentialFormat, http.StatusUnauthorized},
		{"unknown agent", errx.ErrAgentNotFound, http.StatusUnauthorized},
		{"revoked agent", errx.ErrAgentInactive, http.StatusForbidden},
		{"store failure", errx.ErrInternalLookupFailure, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := AgentAuth(&stubGate{err: tt.err})(okHandler(&called))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.False(t, called)
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, errx.CodeOf(tt.err), errorCode(t, w))
		})
	}
}
