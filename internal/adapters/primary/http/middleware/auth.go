package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/trackitco/support-dashboard/internal/core/domain"
	"github.com/trackitco/support-dashboard/internal/core/ports"
	"github.com/trackitco/support-dashboard/internal/infrastructure/logging"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// IdentityKey is the key used to store the caller's identity in the request context.
const IdentityKey contextKey = "identity"

const (
	// AuthCookieName is the cookie the dashboard stores its token in.
	AuthCookieName = "auth-token"

	// SupportUserHeader names the user a support agent is acting for when
	// the query string does not.
	SupportUserHeader = "X-Support-User-Id"
)

// TokenFromRequest returns the bearer token, then the auth cookie, then the
// token query parameter. EventSource clients cannot set headers.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(AuthCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get("token")
}

// CredentialFromRequest collects the token and the acting user for support
// agents.
func CredentialFromRequest(r *http.Request) domain.Credential {
	q := r.URL.Query()
	acting := q.Get("supportUserId")
	if acting == "" {
		acting = q.Get("userId")
	}
	if acting == "" {
		acting = r.Header.Get(SupportUserHeader)
	}
	return domain.Credential{Token: TokenFromRequest(r), SupportUserID: acting}
}

// Authenticate resolves the request credential and stores the identity in
// the context. Requests that fail get a 401.
func Authenticate(authn ports.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := authn.Authenticate(r.Context(), CredentialFromRequest(r))
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Authentication failed","code":"UNAUTHORIZED"}`))
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			ctx = logging.WithUserID(ctx, identity.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity returns the identity stored by Authenticate.
func GetIdentity(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(domain.Identity)
	return identity, ok
}
