package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// RS256 is the only algorithm the development auth service signs with
const RS256 = "RS256"

const minKeyBits = 2048

// KeyPair is the RSA key the auth service signs access tokens with
type KeyPair struct {
	KeyID      string
	PrivateKey *rsa.PrivateKey
}

// JWKS is served at /.well-known/jwks.json
type JWKS struct {
	Keys []JWK `json:"keys"`
}

type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
}

func GenerateRSAKeyPair(keyID string, bits int) (*KeyPair, error) {
	if bits < minKeyBits {
		bits = minKeyBits
	}
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}
	return &KeyPair{KeyID: keyID, PrivateKey: privateKey}, nil
}

func (kp *KeyPair) PublicKey() *rsa.PublicKey {
	return &kp.PrivateKey.PublicKey
}

func (kp *KeyPair) SigningMethod() jwt.SigningMethod {
	return jwt.SigningMethodRS256
}

func (kp *KeyPair) PrivateKeyPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(kp.PrivateKey),
	})
}

// JWK publishes the public half of the key
func (kp *KeyPair) JWK() JWK {
	pub := kp.PublicKey()
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Kid: kp.KeyID,
		Alg: RS256,
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// ParsePEM loads a PKCS#1 RSA private key
func ParsePEM(keyID string, data []byte) (*KeyPair, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}
	privateKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA private key: %w", err)
	}
	return &KeyPair{KeyID: keyID, PrivateKey: privateKey}, nil
}

// LoadOrGenerate reads the signing key from path, creating and saving a new
// one when the file does not exist yet.
func LoadOrGenerate(path, keyID string) (*KeyPair, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return ParsePEM(keyID, data)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}

	keyPair, err := GenerateRSAKeyPair(keyID, minKeyBits)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create key folder: %w", err)
	}
	if err := os.WriteFile(path, keyPair.PrivateKeyPEM(), 0o600); err != nil {
		return nil, fmt.Errorf("failed to save signing key: %w", err)
	}
	log.Info().Str("path", path).Str("kid", keyID).Msg("generated signing key")
	return keyPair, nil
}
