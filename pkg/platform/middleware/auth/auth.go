// Package auth authenticates bearer tokens and stores the verified identity
// in the request context.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"credledger/pkg/platform/httputil"
	"credledger/pkg/requestcontext"
)

// Identity is the verified subject of a bearer token.
type Identity struct {
	Subject      string
	Role         string
	Organization string
}

// TokenValidator verifies a raw bearer token.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Identity, error)
}

type contextKeyIdentity struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity{}, id)
}

// IdentityFrom returns the identity stored by RequireAuth.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKeyIdentity{}).(*Identity)
	return id, ok && id != nil
}

func writeUnauthorized(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="credledger"`)
	httputil.WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             "unauthorized",
		"error_description": desc,
	})
}

// RequireAuth rejects requests without a valid bearer token. Role checks are
// left to the ledger managers.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				if logger != nil {
					logger.WarnContext(ctx, "unauthorized access - missing token",
						"request_id", requestcontext.RequestID(ctx),
					)
				}
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			id, err := validator.ValidateToken(strings.TrimSpace(token))
			if err != nil || id == nil || id.Subject == "" {
				if logger != nil {
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"error", err,
						"request_id", requestcontext.RequestID(ctx),
					)
				}
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, id)))
		})
	}
}
