package server

import (
	"net/http"

	"github.com/jrsteele09/sahasik/auth"
	"github.com/jrsteele09/sahasik/internal/errors"
)

// LoginHandler exchanges a username or email plus password for a token pair
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}

		resp, err := s.auth.Login(req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// RefreshHandler rotates a refresh token
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RefreshRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}

		resp, err := s.auth.Refresh(req.RefreshToken)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ValidateHandler reports the user behind the bearer token
func (s *Server) ValidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, errors.ErrNotAuthenticated)
			return
		}

		resp, err := s.auth.Validate(token)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// JWKSHandler returns the JSON Web Key Set used to validate tokens
func (s *Server) JWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		writeJSON(w, http.StatusOK, s.auth.GetJWKS())
	}
}
