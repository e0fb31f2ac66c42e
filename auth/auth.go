// Package auth holds the auth service contract: the development service that
// issues tokens and the client the application logs in with.
package auth

import (
	"time"

	"github.com/jrsteele09/sahasik/users"
	"golang.org/x/oauth2"
)

// DefaultLoginRole is sent with every login. The service decides the real
// role from the account; the field is kept for wire compatibility.
const DefaultLoginRole = users.RoleAdmin

type LoginRequest struct {
	Username string         `json:"username" validate:"required_without=Email"`
	Email    string         `json:"email" validate:"omitempty,email"`
	Password string         `json:"password" validate:"required"`
	Role     users.RoleType `json:"role,omitempty"`
}

type LoginResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    int64      `json:"expires_in"` // seconds
	User         users.User `json:"user"`
}

// Token converts the response to an oauth2.Token issued at now
func (r *LoginResponse) Token(now time.Time) *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    "Bearer",
	}
	if r.ExpiresIn > 0 {
		t.Expiry = now.Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return t
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ValidateResponse struct {
	Valid bool       `json:"valid"`
	User  users.User `json:"user"`
}
