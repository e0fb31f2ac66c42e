package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/sahasik/internal/api"
	"github.com/jrsteele09/sahasik/internal/errors"
	"github.com/rs/zerolog/log"
)

const maxRequestBody = 1 << 20

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("failed to encode response")
	}
}

// writeJSONError writes the error envelope every service answers with
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, api.ErrorResponse{Error: errorCode, Message: description})
}

// writeError maps err onto a status code. Internal errors are logged and
// never echoed.
func writeError(w http.ResponseWriter, err error) {
	statusCode, code := statusFor(err)
	if statusCode == http.StatusInternalServerError {
		log.Err(err).Msg("request failed")
		writeJSONError(w, code, "internal error", statusCode)
		return
	}
	writeJSONError(w, code, err.Error(), statusCode)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errors.ErrInvalidRequest), errors.Is(err, errors.ErrWeakPassword):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, errors.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, errors.ErrTokenExpired), errors.Is(err, errors.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, "token_expired"
	case errors.Is(err, errors.ErrNotAuthenticated),
		errors.Is(err, errors.ErrInvalidToken),
		errors.Is(err, errors.ErrNoRefreshToken),
		errors.Is(err, errors.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errors.ErrUserBlocked), errors.Is(err, errors.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errors.ErrConflict):
		return http.StatusConflict, "conflict"
	}
	return http.StatusInternalServerError, "internal_error"
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(v); err != nil {
		return errors.Wrapf(errors.ErrInvalidRequest, "malformed JSON body: %v", err)
	}
	return nil
}
