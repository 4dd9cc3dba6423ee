// Package rbac guards routes by the role of the authenticated caller.
package rbac

import (
	"net/http"

	"github.com/shashiranjanraj/studio/pkg/auth"
	"github.com/shashiranjanraj/studio/pkg/response"
)

// Authorize allows only callers whose role is one of roles. Protect must run
// first; a request without an identity is rejected as unauthenticated.
func Authorize(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.FromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "Not authorized to access this route")
				return
			}
			if !allowed[id.Role] {
				response.Forbidden(w, "User role "+id.Role+" is not authorized to access this route")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Admin is Authorize(auth.RoleAdmin).
func Admin() func(http.Handler) http.Handler {
	return Authorize(auth.RoleAdmin)
}
