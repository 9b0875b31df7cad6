package middleware

import (
	"net/http"

	"github.com/platinummonkey/gatekeeper/pkg/auth"
	"github.com/platinummonkey/gatekeeper/pkg/contextkeys"
	"github.com/platinummonkey/gatekeeper/pkg/errx"
	"github.com/platinummonkey/gatekeeper/pkg/httputil"
)

// IdentityExtractor produces the caller's identity for a request
type IdentityExtractor interface {
	Extract(r *http.Request) (*auth.UserContext, error)
}

// Authenticate resolves the caller's identity and rejects the request when
// none can be established
func Authenticate(extractor IdentityExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := extractor.Extract(r)
			if err != nil {
				httputil.WriteAPIError(w, r, err)
				return
			}

			if s, ok := w.(httputil.UserIDSetter); ok {
				s.SetUserID(user.UserID)
			}

			ctx := contextkeys.WithUser(r.Context(), user)
			ctx = contextkeys.WithUserID(ctx, user.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser extracts the authenticated user from the request
func GetUser(r *http.Request) *auth.UserContext {
	user, ok := r.Context().Value(contextkeys.UserKey).(*auth.UserContext)
	if !ok {
		return nil
	}
	return user
}

// RequireRole creates middleware that requires at least the given role
func RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				httputil.WriteAPIError(w, r, errx.ErrMissingCredential)
				return
			}

			if !user.HasRole(role) {
				httputil.WriteAPIError(w, r, errx.ErrInsufficientRole.
					WithDetail("required_role", string(role)).
					WithDetail("actual_role", string(user.Role)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// OwnerFunc returns the owner of the resource addressed by a request. A nil
// owner marks a public resource.
type OwnerFunc func(r *http.Request) (*string, error)

// RequireOwnership creates middleware that admits the resource owner,
// agents and admins
func RequireOwnership(owner OwnerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				httputil.WriteAPIError(w, r, errx.ErrMissingCredential)
				return
			}

			ownerID, err := owner(r)
			if err != nil {
				httputil.WriteAPIError(w, r, err)
				return
			}

			if !auth.CanAccessResource(user, ownerID) {
				httputil.WriteAPIError(w, r, errx.ErrInsufficientRole)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
