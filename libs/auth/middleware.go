package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/clinicbook/libs/httpx"
)

type ctxKey int

const ctxKeyClaims ctxKey = iota

// TokenHeader is the header the booking frontend sends its credential in.
const TokenHeader = "token"

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKeyClaims).(*Claims)
	return c, ok && c != nil
}

// TokenFromRequest reads the credential from the token header, then from
// "Authorization: Bearer".
func TokenFromRequest(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get(TokenHeader)); t != "" {
		return t
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

func RequireAuth(next http.Handler, secret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			deny(w, http.StatusUnauthorized, "Not Authorized Login Again")
			return
		}
		claims, err := ParseAndVerifyHS256(token, secret)
		if err != nil {
			deny(w, http.StatusUnauthorized, "Not Authorized Login Again")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyClaims, claims)))
	})
}

// RequireRole must run inside RequireAuth.
func RequireRole(next http.Handler, roles ...string) http.Handler {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			deny(w, http.StatusUnauthorized, "Not Authorized Login Again")
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			deny(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// deny answers in the same {success,message} shape as the booking endpoints.
func deny(w http.ResponseWriter, status int, msg string) {
	httpx.WriteJSON(w, status, map[string]any{"success": false, "message": msg})
}
