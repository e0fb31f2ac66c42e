package server

import (
	"net/http"
	"strconv"

	"github.com/jrsteele09/sahasik/internal/errors"
	"github.com/jrsteele09/sahasik/users"
	"github.com/rs/zerolog/log"
)

const defaultListLimit = 100

// GetMeHandler returns the caller's own profile
func (s *Server) GetMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeError(w, errors.ErrNotAuthenticated)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// UpdateMeHandler applies a partial profile update to the caller
func (s *Server) UpdateMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeError(w, errors.ErrNotAuthenticated)
			return
		}

		var update users.ProfileUpdate
		if err := readJSON(w, r, &update); err != nil {
			writeError(w, err)
			return
		}
		if err := update.Validate(); err != nil {
			writeError(w, err)
			return
		}

		updated := *user
		update.Apply(&updated)
		if err := s.repos.Users.Upsert(&updated); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, &updated)
	}
}

// ListUsersHandler lists accounts, narrowed to role when it is set
func (s *Server) ListUsersHandler(role users.RoleType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset := queryInt(r, "offset", 0)
		limit := queryInt(r, "limit", defaultListLimit)

		list, err := s.repos.Users.List(role, offset, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// CreateUserHandler registers a new account
func (s *Server) CreateUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req users.CreateRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, err)
			return
		}

		user, err := req.User()
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.repos.Users.Upsert(user); err != nil {
			writeError(w, err)
			return
		}

		if admin, ok := UserFromContext(r.Context()); ok {
			log.Info().Str("by", admin.Username).Str("username", user.Username).Str("role", string(user.Role)).Msg("user created")
		}
		writeJSON(w, http.StatusCreated, user)
	}
}

// queryInt reads a non-negative integer query parameter
func queryInt(r *http.Request, key string, defaultValue int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return defaultValue
	}
	return v
}
