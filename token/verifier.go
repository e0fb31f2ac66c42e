// Package token verifies access tokens on the client side against the auth
// service's published key set.
package token

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/sahasik/internal/errors"
)

// JWKSPath is where the auth service publishes its signing keys
const JWKSPath = "/.well-known/jwks.json"

// Claims is the subset of access token claims clients care about
type Claims struct {
	UserID   int       `json:"-"`
	Subject  string    `json:"sub"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	Expiry   time.Time `json:"-"`
}

// Verifier checks signature, issuer and expiry of access tokens using keys
// fetched (and cached) from the issuer's JWKS endpoint.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier builds a verifier for tokens issued by issuer. jwksURL is
// usually issuer + JWKSPath. now may be nil.
func NewVerifier(ctx context.Context, issuer, jwksURL string, now func() time.Time) *Verifier {
	keySet := oidc.NewRemoteKeySet(ctx, jwksURL)
	return &Verifier{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{
			SkipClientIDCheck:    true, // access tokens carry no audience
			SupportedSigningAlgs: []string{oidc.RS256},
			Now:                  now,
		}),
	}
}

func (v *Verifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		var expired *oidc.TokenExpiredError
		if errors.As(err, &expired) {
			return nil, fmt.Errorf("%w: %w", errors.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidToken, err)
	}

	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidToken, err)
	}
	claims.Expiry = idToken.Expiry
	if id, err := strconv.Atoi(claims.Subject); err == nil {
		claims.UserID = id
	}
	return &claims, nil
}
