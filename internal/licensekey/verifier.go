package licensekey

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/carvdstudio/carvd-licensing/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ReasonExpired   = "expired"
	ReasonMalformed = "malformed token"
	ReasonBadSig    = "signature verification failed"
)

// Result is the outcome of an offline verification. Claims is populated
// only when Valid is true.
type Result struct {
	Valid  bool    `json:"valid"`
	Claims *Claims `json:"data,omitempty"`
	Reason string  `json:"error,omitempty"`
}

// Verifier checks license keys against the embedded public key. It holds
// no private material, needs no network access, and is safe to re-run at
// any time.
type Verifier struct {
	pub *rsa.PublicKey
}

func NewVerifier(pub *rsa.PublicKey) *Verifier {
	return &Verifier{pub: pub}
}

func NewVerifierFromPEM(pemBytes []byte) (*Verifier, error) {
	pub, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
	}
	return &Verifier{pub: pub}, nil
}

// LoadVerifier builds a Verifier from the signing configuration. Inline
// PEM takes precedence over a key file path.
func LoadVerifier(cfg *config.SigningConfig) (*Verifier, error) {
	pemBytes := []byte(cfg.PublicKeyPEM)
	if len(pemBytes) == 0 && cfg.PublicKeyPath != "" {
		data, err := os.ReadFile(cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read public key file %s: %w", cfg.PublicKeyPath, err)
		}
		pemBytes = data
	}
	if len(pemBytes) == 0 {
		return nil, nil
	}
	return NewVerifierFromPEM(pemBytes)
}

// Verify validates the signature and claims of a raw license key. It
// always returns a tagged result and never panics: a garbage key is an
// ordinary, expected outcome. A missing exp claim means the key never
// expires.
func (v *Verifier) Verify(rawKey string) Result {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(rawKey, claims, func(t *jwt.Token) (interface{}, error) {
		return v.pub, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))

	if err != nil {
		return Result{Valid: false, Reason: verifyReason(err)}
	}
	if !token.Valid {
		return Result{Valid: false, Reason: ReasonBadSig}
	}

	return Result{Valid: true, Claims: claims}
}

func verifyReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ReasonMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ReasonBadSig
	default:
		return err.Error()
	}
}
