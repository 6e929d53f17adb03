package licensekey

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeypair(t *testing.T) (*Signer, *Verifier) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return &Signer{key: key}, NewVerifier(&key.PublicKey)
}

func TestSignAndVerifyPerpetualKey(t *testing.T) {
	signer, verifier := newTestKeypair(t)

	rawKey, err := signer.Sign("a@b.com", "ORD-1", nil)
	require.NoError(t, err)
	require.NotEmpty(t, rawKey)

	result := verifier.Verify(rawKey)

	require.True(t, result.Valid)
	require.NotNil(t, result.Claims)
	assert.Equal(t, "a@b.com", result.Claims.Email)
	assert.Equal(t, "ORD-1", result.Claims.OrderID)
	assert.Equal(t, "carvd-studio", result.Claims.Product)
	assert.Equal(t, "standard", result.Claims.LicenseType)
	assert.NotNil(t, result.Claims.IssuedAt)
	assert.True(t, result.Claims.IsPerpetual())
	assert.Empty(t, result.Reason)
}

func TestVerifyKeyWithFutureExpiry(t *testing.T) {
	signer, verifier := newTestKeypair(t)

	expiresAt := time.Now().Add(24 * time.Hour)
	rawKey, err := signer.Sign("a@b.com", "ORD-2", &expiresAt)
	require.NoError(t, err)

	result := verifier.Verify(rawKey)

	require.True(t, result.Valid)
	assert.False(t, result.Claims.IsPerpetual())
	assert.WithinDuration(t, expiresAt, result.Claims.ExpiresAt.Time, time.Second)
}

func TestVerifyExpiredKey(t *testing.T) {
	signer, verifier := newTestKeypair(t)

	expiresAt := time.Now().Add(-1 * time.Hour)
	rawKey, err := signer.Sign("a@b.com", "ORD-3", &expiresAt)
	require.NoError(t, err)

	result := verifier.Verify(rawKey)

	assert.False(t, result.Valid)
	assert.Nil(t, result.Claims)
	assert.Equal(t, ReasonExpired, result.Reason)
}

func TestVerifyKeySignedWithDifferentKey(t *testing.T) {
	signer, _ := newTestKeypair(t)
	_, otherVerifier := newTestKeypair(t)

	rawKey, err := signer.Sign("a@b.com", "ORD-4", nil)
	require.NoError(t, err)

	result := otherVerifier.Verify(rawKey)

	assert.False(t, result.Valid)
	assert.Equal(t, ReasonBadSig, result.Reason)
}

func TestVerifyMalformedInput(t *testing.T) {
	_, verifier := newTestKeypair(t)

	testCases := []struct {
		name   string
		rawKey string
	}{
		{name: "empty string", rawKey: ""},
		{name: "random text", rawKey: "not-a-license-key"},
		{name: "two segments only", rawKey: "abc.def"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := verifier.Verify(tc.rawKey)

			assert.False(t, result.Valid)
			assert.Nil(t, result.Claims)
			assert.Equal(t, ReasonMalformed, result.Reason)
		})
	}
}

func TestVerifyRejectsNonRS256Algorithm(t *testing.T) {
	_, verifier := newTestKeypair(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Email:   "a@b.com",
		OrderID: "ORD-5",
		Product: Product,
	})
	rawKey, err := token.SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	result := verifier.Verify(rawKey)

	assert.False(t, result.Valid)
}

func TestTamperedPayloadFailsVerification(t *testing.T) {
	signer, verifier := newTestKeypair(t)

	rawKey, err := signer.Sign("a@b.com", "ORD-6", nil)
	require.NoError(t, err)

	tampered := rawKey[:len(rawKey)-4] + "AAAA"
	if tampered == rawKey {
		tampered = rawKey[:len(rawKey)-4] + "BBBB"
	}

	result := verifier.Verify(tampered)

	assert.False(t, result.Valid)
	assert.Nil(t, result.Claims)
}
