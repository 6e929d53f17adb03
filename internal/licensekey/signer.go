package licensekey

import (
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"github.com/carvdstudio/carvd-licensing/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// Signer mints RS256-signed license keys. The private key never leaves
// the issuing service.
type Signer struct {
	key *rsa.PrivateKey
}

func NewSignerFromPEM(pemBytes []byte) (*Signer, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA private key: %w", err)
	}
	return &Signer{key: key}, nil
}

// LoadSigner builds a Signer from the signing configuration. Inline PEM
// takes precedence over a key file path. Returns (nil, nil) when no key
// material is configured so the caller can defer the failure to request
// time, where it is reported as a server error.
func LoadSigner(cfg *config.SigningConfig) (*Signer, error) {
	pemBytes := []byte(cfg.PrivateKeyPEM)
	if len(pemBytes) == 0 && cfg.PrivateKeyPath != "" {
		data, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key file %s: %w", cfg.PrivateKeyPath, err)
		}
		pemBytes = data
	}
	if len(pemBytes) == 0 {
		return nil, nil
	}
	return NewSignerFromPEM(pemBytes)
}

func (s *Signer) PublicKey() *rsa.PublicKey {
	return &s.key.PublicKey
}

// Sign issues a license key for the given purchase. A nil expiresAt
// produces a perpetual key with no exp claim.
func (s *Signer) Sign(email, orderID string, expiresAt *time.Time) (string, error) {
	claims := Claims{
		Email:       email,
		OrderID:     orderID,
		Product:     Product,
		LicenseType: TypeStandard,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	if expiresAt != nil {
		claims.ExpiresAt = jwt.NewNumericDate(*expiresAt)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, &claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign license key: %w", err)
	}
	return signed, nil
}
