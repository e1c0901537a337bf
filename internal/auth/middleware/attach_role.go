package auth

import (
	"context"
	"net/http"

	"github.com/mind-engage/toximeter/internal/apperr"
	"github.com/mind-engage/toximeter/internal/rbac"
)

type RoleSource interface {
	RoleOf(ctx context.Context, id string) (string, error)
}

// AttachRoleFromDB replaces the token's role claim with the stored role, so
// demotions and deleted accounts take effect before tokens expire. Mount it
// after JWTMiddleware.
func AttachRoleFromDB(users RoleSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			role, err := users.RoleOf(ctx, SubjectFromContext(ctx))
			switch {
			case apperr.IsNotFound(err):
				apperr.WriteJSON(w, apperr.New(apperr.CodeUnauthorized, "account no longer exists"))
				return
			case err != nil:
				apperr.WriteJSON(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
		})
	}
}
