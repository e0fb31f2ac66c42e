package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/sahasik/auth"
	"github.com/jrsteele09/sahasik/internal/errors"
	"github.com/jrsteele09/sahasik/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyUser stores the authenticated *users.User
const ContextKeyUser ContextKey = "user"

// RequireAuth is middleware that validates a Bearer access token and loads
// its user into the request context
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeJSONError(w, "unauthorized", "missing or malformed Authorization header", http.StatusUnauthorized)
				return
			}

			user, err := s.auth.Authenticate(token)
			if err != nil {
				writeError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireRole is middleware that admits users holding one of roles.
// Should be chained after RequireAuth to ensure the user is present
func (s *Server) RequireRole(roles ...users.RoleType) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				writeError(w, errors.ErrNotAuthenticated)
				return
			}
			if !user.HasRole(roles...) {
				writeError(w, fmt.Errorf("%w: %s may not access this resource", errors.ErrForbidden, user.Role))
				return
			}
			next(w, r)
		}
	}
}

func UserFromContext(ctx context.Context) (*users.User, bool) {
	user, ok := ctx.Value(ContextKeyUser).(*users.User)
	return user, ok && user != nil
}
