package httpx

import (
	"net/http"
	"slices"
)

// RoleAdmin is the role allowed through RequireRole when no roles are listed.
const RoleAdmin = "ADMIN"

// RequireRole lets the request through when the caller has one of the roles.
// With no roles listed only administrators pass.
func RequireRole(roles ...string) Middleware {
	if len(roles) == 0 {
		roles = []string{RoleAdmin}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			if !slices.Contains(roles, p.Role) {
				WriteError(w, http.StatusForbidden, "Forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
