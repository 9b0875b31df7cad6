package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/gatekeeper/pkg/auth"
	"github.com/platinummonkey/gatekeeper/pkg/contextkeys"
	"github.com/platinummonkey/gatekeeper/pkg/errx"
	"github.com/platinummonkey/gatekeeper/pkg/httputil"
)

const (
	userA = "3f1c2b4a-0d5e-4c1a-9b7f-8e6d5c4b3a21"
	orgA  = "a1a1a1a1-0000-4000-8000-000000000001"
	orgB  = "b2b2b2b2-0000-4000-8000-000000000002"
)

// withUser attaches an identity the way Authenticate would
func withUser(r *http.Request, user *auth.UserContext) *http.Request {
	return r.WithContext(contextkeys.WithUser(r.Context(), user))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) errx.Code {
	t.Helper()
	var envelope httputil.ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Error.Code
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func gatewayExtractor() *auth.IdentityExtractor {
	return auth.NewIdentityExtractor(nil, auth.GatewayHeaderStrategy{})
}

func TestAuthenticate(t *testing.T) {
	t.Run("attaches gateway identity", func(t *testing.T) {
		var user *auth.UserContext
		handler := Authenticate(gatewayExtractor())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user = GetUser(r)
			assert.Equal(t, userA, contextkeys.GetUserID(r.Context()))
		}))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(auth.HeaderUserID, userA)
		r.Header.Set(auth.HeaderUserRoles, "agent")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		require.NotNil(t, user)
		assert.Equal(t, userA, user.UserID)
		assert.Equal(t, auth.RoleAgent, user.Role)
		assert.Equal(t, auth.SourceGateway, user.Source)
	})

	t.Run("missing credential short-circuits", func(t *testing.T) {
		called := false
		handler := Authenticate(gatewayExtractor())(okHandler(&called))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, errx.CodeMissingCredential, errorCode(t, w))
	})

	t.Run("verifier error is terminal", func(t *testing.T) {
		called := false
		extractor := auth.NewIdentityExtractor(nil, &auth.BearerTokenStrategy{Verifier: expiredVerifier{}})
		handler := Authenticate(extractor)(okHandler(&called))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer abc.def.ghi")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, errx.CodeExpiredToken, errorCode(t, w))
	})
}

type expiredVerifier struct{}

func (expiredVerifier) Verify(context.Context, string) (*auth.TokenClaims, error) {
	return nil, errx.ErrExpiredToken
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		user     *auth.UserContext
		required auth.Role
		want     int
		wantCode errx.Code
	}{
		{"unauthenticated", nil, auth.RoleUser, http.StatusUnauthorized, errx.CodeMissingCredential},
		{"user below agent", &auth.UserContext{UserID: "u", Role: auth.RoleUser}, auth.RoleAgent, http.StatusForbidden, errx.CodeInsufficientRole},
		{"agent below admin", &auth.UserContext{UserID: "u", Role: auth.RoleAgent}, auth.RoleAdmin, http.StatusForbidden, errx.CodeInsufficientRole},
		{"agent meets agent", &auth.UserContext{UserID: "u", Role: auth.RoleAgent}, auth.RoleAgent, http.StatusOK, ""},
		{"admin meets user", &auth.UserContext{UserID: "u", Role: auth.RoleAdmin}, auth.RoleUser, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := RequireRole(tt.required)(okHandler(&called))

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.user != nil {
				r = withUser(r, tt.user)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.want == http.StatusOK, called)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, w))
			}
		})
	}
}

func TestRequireOwnership(t *testing.T) {
	owner := "owner-1"
	ownedBy := func(id *string) OwnerFunc {
		return func(*http.Request) (*string, error) { return id, nil }
	}

	tests := []struct {
		name  string
		user  *auth.UserContext
		owner *string
		want  int
	}{
		{"owner", &auth.UserContext{UserID: owner, Role: auth.RoleUser}, &owner, http.StatusOK},
		{"public resource", &auth.UserContext{UserID: "other", Role: auth.RoleUser}, nil, http.StatusOK},
		{"agent", &auth.UserContext{UserID: "other", Role: auth.RoleAgent}, &owner, http.StatusOK},
		{"admin", &auth.UserContext{UserID: "other", Role: auth.RoleAdmin}, &owner, http.StatusOK},
		{"stranger", &auth.UserContext{UserID: "other", Role: auth.RoleUser}, &owner, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := RequireOwnership(ownedBy(tt.owner))(okHandler(&called))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, withUser(httptest.NewRequest(http.MethodGet, "/", nil), tt.user))
			assert.Equal(t, tt.want, w.Code)
		})
	}

	t.Run("owner lookup error", func(t *testing.T) {
		called := false
		handler := RequireOwnership(func(*http.Request) (*string, error) {
			return nil, errx.ErrCodeNotFound
		})(okHandler(&called))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, withUser(httptest.NewRequest(http.MethodGet, "/", nil), &auth.UserContext{UserID: "u"}))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.False(t, called)
	})
}
