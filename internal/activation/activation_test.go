package activation

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/carvdstudio/carvd-licensing/internal/licensekey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "carvd-studio", "license.json")
	return NewStore(path, zap.NewNop())
}

func newTestSignerAndVerifier(t *testing.T) (*licensekey.Signer, *licensekey.Verifier) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	signer, err := licensekey.NewSignerFromPEM(privPEM)
	require.NoError(t, err)

	return signer, licensekey.NewVerifier(&key.PublicKey)
}

func TestLoadMissingFileReturnsZeroState(t *testing.T) {
	store := newTestStore(t)

	state, err := store.Load()
	require.NoError(t, err)

	assert.False(t, state.Activated())
	assert.Nil(t, state.TrialStartedAt)
	assert.Nil(t, state.LicenseActivatedAt)
}

func TestEnsureTrialStartedIsSetOnce(t *testing.T) {
	store := newTestStore(t)

	first, err := store.EnsureTrialStarted()
	require.NoError(t, err)
	require.NotNil(t, first.TrialStartedAt)

	second, err := store.EnsureTrialStarted()
	require.NoError(t, err)
	require.NotNil(t, second.TrialStartedAt)

	assert.True(t, first.TrialStartedAt.Equal(*second.TrialStartedAt),
		"trial start must survive repeated calls unchanged")
}

func TestRecordActivationPersistsState(t *testing.T) {
	store := newTestStore(t)
	signer, verifier := newTestSignerAndVerifier(t)

	_, err := store.EnsureTrialStarted()
	require.NoError(t, err)

	rawKey, err := signer.Sign("a@b.com", "ORD-1", nil)
	require.NoError(t, err)
	result := verifier.Verify(rawKey)
	require.True(t, result.Valid)

	state, err := store.RecordActivation(result.Claims, rawKey)
	require.NoError(t, err)
	assert.True(t, state.Activated())

	reloaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, rawKey, reloaded.LicenseKey)
	assert.Equal(t, "a@b.com", reloaded.LicenseEmail)
	assert.Equal(t, "ORD-1", reloaded.LicenseOrderID)
	assert.NotNil(t, reloaded.LicenseActivatedAt)
	assert.NotNil(t, reloaded.TrialStartedAt, "activation must not disturb trial bookkeeping")
}

func TestClearPreservesTrialBookkeeping(t *testing.T) {
	store := newTestStore(t)
	signer, verifier := newTestSignerAndVerifier(t)

	trialState, err := store.EnsureTrialStarted()
	require.NoError(t, err)

	rawKey, err := signer.Sign("a@b.com", "ORD-1", nil)
	require.NoError(t, err)
	result := verifier.Verify(rawKey)
	require.True(t, result.Valid)

	_, err = store.RecordActivation(result.Claims, rawKey)
	require.NoError(t, err)

	cleared, err := store.Clear()
	require.NoError(t, err)

	assert.False(t, cleared.Activated())
	assert.Empty(t, cleared.LicenseEmail)
	assert.Empty(t, cleared.LicenseOrderID)
	assert.Nil(t, cleared.LicenseActivatedAt)
	require.NotNil(t, cleared.TrialStartedAt)
	assert.True(t, trialState.TrialStartedAt.Equal(*cleared.TrialStartedAt))
}

func TestStateFilePermissions(t *testing.T) {
	store := newTestStore(t)

	_, err := store.EnsureTrialStarted()
	require.NoError(t, err)

	info, err := os.Stat(store.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestGateActivateRejectsInvalidKeyWithoutError(t *testing.T) {
	store := newTestStore(t)
	_, verifier := newTestSignerAndVerifier(t)
	gate := NewGate(verifier, store, zap.NewNop())

	result, err := gate.Activate("garbage-key")
	require.NoError(t, err, "an invalid key is an ordinary outcome")
	assert.False(t, result.Valid)

	state, err := store.Load()
	require.NoError(t, err)
	assert.False(t, state.Activated(), "rejected keys must not be persisted")
}

func TestGateEvaluateLicensed(t *testing.T) {
	store := newTestStore(t)
	signer, verifier := newTestSignerAndVerifier(t)
	gate := NewGate(verifier, store, zap.NewNop())

	rawKey, err := signer.Sign("a@b.com", "ORD-1", nil)
	require.NoError(t, err)
	result, err := gate.Activate(rawKey)
	require.NoError(t, err)
	require.True(t, result.Valid)

	ent, err := gate.Evaluate()
	require.NoError(t, err)

	assert.Equal(t, ModeLicensed, ent.Mode)
	assert.True(t, ent.Licensed)
	assert.Equal(t, "a@b.com", ent.LicenseEmail)
	assert.True(t, ent.ExportEnabled)
	assert.Zero(t, ent.MaxParts)
}

func TestGateEvaluateFreshTrial(t *testing.T) {
	store := newTestStore(t)
	_, verifier := newTestSignerAndVerifier(t)
	gate := NewGate(verifier, store, zap.NewNop())

	ent, err := gate.Evaluate()
	require.NoError(t, err)

	assert.Equal(t, ModeTrial, ent.Mode)
	assert.False(t, ent.Licensed)
	assert.Equal(t, TrialLengthDays, ent.TrialDaysRemaining)
	assert.True(t, ent.ExportEnabled)
}

func TestGateEvaluateReducedAfterTrialExpiry(t *testing.T) {
	store := newTestStore(t)
	_, verifier := newTestSignerAndVerifier(t)
	gate := NewGate(verifier, store, zap.NewNop())

	_, err := store.EnsureTrialStarted()
	require.NoError(t, err)

	gate.now = func() time.Time {
		return time.Now().Add((TrialLengthDays + 1) * 24 * time.Hour)
	}

	ent, err := gate.Evaluate()
	require.NoError(t, err)

	assert.Equal(t, ModeReduced, ent.Mode)
	assert.False(t, ent.Licensed)
	assert.Zero(t, ent.TrialDaysRemaining)
	assert.Equal(t, ReducedModeMaxParts, ent.MaxParts)
	assert.False(t, ent.ExportEnabled)
}

func TestGateEvaluateExpiredStoredKeyFallsBackToTrial(t *testing.T) {
	store := newTestStore(t)
	signer, verifier := newTestSignerAndVerifier(t)
	gate := NewGate(verifier, store, zap.NewNop())

	expiresAt := time.Now().Add(-1 * time.Hour)
	rawKey, err := signer.Sign("a@b.com", "ORD-1", &expiresAt)
	require.NoError(t, err)

	// The key was valid when activated; it has since expired on disk.
	claims := &licensekey.Claims{Email: "a@b.com", OrderID: "ORD-1"}
	_, err = store.RecordActivation(claims, rawKey)
	require.NoError(t, err)

	ent, err := gate.Evaluate()
	require.NoError(t, err)

	assert.Equal(t, ModeTrial, ent.Mode)
	assert.False(t, ent.Licensed)
	assert.Equal(t, "expired", ent.LicenseReason)
}

func TestGateDeactivateReturnsToTrial(t *testing.T) {
	store := newTestStore(t)
	signer, verifier := newTestSignerAndVerifier(t)
	gate := NewGate(verifier, store, zap.NewNop())

	rawKey, err := signer.Sign("a@b.com", "ORD-1", nil)
	require.NoError(t, err)
	_, err = gate.Activate(rawKey)
	require.NoError(t, err)

	require.NoError(t, gate.Deactivate())

	ent, err := gate.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, ModeTrial, ent.Mode)
	assert.False(t, ent.Licensed)
}

func TestTrialDaysRemaining(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name  string
		start *time.Time
		now   time.Time
		want  int
	}{
		{name: "unset trial counts as full", start: nil, now: start, want: TrialLengthDays},
		{name: "at trial start", start: &start, now: start, want: TrialLengthDays},
		{name: "partial day rounds up", start: &start, now: start.Add(13*24*time.Hour + 12*time.Hour), want: 1},
		{name: "one hour before expiry", start: &start, now: start.Add(14*24*time.Hour - time.Hour), want: 1},
		{name: "exactly at expiry", start: &start, now: start.Add(14 * 24 * time.Hour), want: 0},
		{name: "well past expiry", start: &start, now: start.Add(30 * 24 * time.Hour), want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, trialDaysRemaining(tc.start, tc.now))
		})
	}
}
