package rbac

import (
	"net/http"

	"github.com/mind-engage/toximeter/internal/apperr"
)

var defaultChecker = NewChecker(nil)

// Require enforces a single permission.
func Require(perm string) func(http.Handler) http.Handler {
	return RequireWith(defaultChecker, perm)
}

// RequireWith enforces perm against a specific checker.
func RequireWith(c *Checker, perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" {
				apperr.WriteJSON(w, apperr.New(apperr.CodeUnauthorized, "unauthorized"))
				return
			}
			if !c.Has(role, perm) {
				apperr.WriteJSON(w, apperr.New(apperr.CodeForbidden, "forbidden"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
