package keys

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer signs access tokens and hands out the key to verify them
type Signer interface {
	Sign(claims jwt.MapClaims) (string, error)

	// GetVerificationKey is the jwt.Keyfunc used when parsing signed tokens
	GetVerificationKey(token *jwt.Token) (any, error)

	JWKS() JWKS
}

// KeyPairSigner signs with a single RS256 key
type KeyPairSigner struct {
	keyPair *KeyPair
}

func NewKeyPairSigner(keyPair *KeyPair) *KeyPairSigner {
	return &KeyPairSigner{keyPair: keyPair}
}

func (s *KeyPairSigner) Sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(s.keyPair.SigningMethod(), claims)
	token.Header["kid"] = s.keyPair.KeyID

	signed, err := token.SignedString(s.keyPair.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *KeyPairSigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	if kid, _ := token.Header["kid"].(string); kid != "" && kid != s.keyPair.KeyID {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return s.keyPair.PublicKey(), nil
}

func (s *KeyPairSigner) JWKS() JWKS {
	return JWKS{Keys: []JWK{s.keyPair.JWK()}}
}
