package jwt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/sahasik/internal/errors"
	"github.com/jrsteele09/sahasik/token/keys"
	"github.com/jrsteele09/sahasik/users"
)

// AccessClaims is what a verified access token says about its bearer
type AccessClaims struct {
	UserID    int
	Username  string
	Email     string
	Role      users.RoleType
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	JTI       string
}

// Inspector verifies access tokens issued by a Creator
type Inspector struct {
	signer keys.Signer
	issuer string
}

func NewInspector(signer keys.Signer, issuer string) *Inspector {
	return &Inspector{signer: signer, issuer: issuer}
}

// Introspect verifies the signature, issuer and expiry of rawToken. Expired
// tokens fail with errors.ErrTokenExpired, everything else with
// errors.ErrInvalidToken.
func (i *Inspector) Introspect(rawToken string) (*AccessClaims, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, fmt.Errorf("%w: empty token", errors.ErrInvalidToken)
	}

	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{keys.RS256}),
		jwtlib.WithIssuer(i.issuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(NowTimeFunc),
	)
	token, err := parser.ParseWithClaims(rawToken, jwtlib.MapClaims{}, i.signer.GetVerificationKey)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", errors.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: error extracting claims", errors.ErrInvalidToken)
	}
	if tokenType, _ := claims["token_type"].(string); tokenType != "access" {
		return nil, fmt.Errorf("%w: not an access token", errors.ErrInvalidToken)
	}

	sub, _ := claims.GetSubject()
	userID, err := strconv.Atoi(sub)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject %q", errors.ErrInvalidToken, sub)
	}

	out := &AccessClaims{UserID: userID}
	out.Username, _ = claims["username"].(string)
	out.Email, _ = claims["email"].(string)
	role, _ := claims["role"].(string)
	out.Role = users.RoleType(role)
	out.Issuer, _ = claims.GetIssuer()
	out.JTI, _ = claims["jti"].(string)
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
