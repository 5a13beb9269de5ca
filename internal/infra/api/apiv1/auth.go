// File: internal/infra/api/apiv1/auth.go
package apiv1

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type principalKey struct{}

// Principal is the authenticated caller. Merchant tokens are scoped to a
// single merchant; admin tokens may address any merchant explicitly.
type Principal struct {
	MerchantID string
	Role       string // "merchant" | "admin"
}

func principalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// JWTAuth validates a Bearer token signed with the shared secret and stores
// the resulting Principal in the request context. An empty secret disables
// authentication entirely (local development). Only /api/ paths are guarded;
// health and metrics stay open for probes and scrapers.
func JWTAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" || !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			p := Principal{}
			if v, ok := claims["merchant_id"].(string); ok {
				p.MerchantID = v
			}
			if v, ok := claims["role"].(string); ok {
				p.Role = v
			}
			if p.Role == "" {
				p.Role = "merchant"
			}

			ctx := context.WithValue(r.Context(), principalKey{}, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// effectiveMerchantID resolves which merchant a request operates on.
// Merchant tokens are pinned to their own id; admins (and unauthenticated dev
// mode) take the explicit merchant_id query parameter, which may be empty to
// mean "all merchants" on endpoints that allow it.
func effectiveMerchantID(r *http.Request) string {
	if p, ok := principalFrom(r.Context()); ok && p.Role == "merchant" && p.MerchantID != "" {
		return p.MerchantID
	}
	return r.URL.Query().Get("merchant_id")
}

// requireAdmin guards master-level endpoints that span all merchants.
func requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p, ok := principalFrom(r.Context()); ok && p.Role != "admin" {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	}
}
