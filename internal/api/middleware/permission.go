package middleware

import (
	"net/http"

	"github.com/phrazzld/taskhub/internal/api/shared"
	"github.com/phrazzld/taskhub/internal/authz"
)

// RequireStaff allows only authenticated staff users. It must run after
// AuthMiddleware.Authenticate.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := shared.GetPrincipal(r.Context())
		if !ok {
			shared.RespondWithError(w, r, http.StatusUnauthorized,
				"Authentication credentials were not provided.")
			return
		}
		if !p.Staff && !p.Superuser {
			shared.RespondWithErrorAndLog(w, r, http.StatusForbidden,
				"You do not have permission to perform this action.", nil,
				shared.WithElevatedLogLevel())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Allowed checks action on object for the request principal. It writes the
// error response and returns false when the request may not proceed.
func Allowed(w http.ResponseWriter, r *http.Request, az authz.Authorizer, object, action string) bool {
	p, ok := shared.GetPrincipal(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized,
			"Authentication credentials were not provided.")
		return false
	}
	allowed, err := az.Allowed(r.Context(), authz.Subject{UserID: p.UserID, Superuser: p.Superuser}, object, action)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"An unexpected error occurred", err)
		return false
	}
	if !allowed {
		shared.RespondWithErrorAndLog(w, r, http.StatusForbidden,
			"You do not have permission to perform this action.", nil,
			shared.WithElevatedLogLevel())
		return false
	}
	return true
}

// RequirePermission guards a route with a fixed object and action.
func RequirePermission(az authz.Authorizer, object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if Allowed(w, r, az, object, action) {
				next.ServeHTTP(w, r)
			}
		})
	}
}
