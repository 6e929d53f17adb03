package activation

import (
	"math"
	"time"

	"github.com/carvdstudio/carvd-licensing/internal/licensekey"
	"go.uber.org/zap"
)

const (
	// TrialLengthDays is the full-feature evaluation window tracked from
	// first run.
	TrialLengthDays = 14

	// ReducedModeMaxParts caps design size once neither a license nor
	// trial time remains. The application stays usable; there is no hard
	// lockout.
	ReducedModeMaxParts = 10
)

type Mode string

const (
	ModeLicensed Mode = "licensed"
	ModeTrial    Mode = "trial"
	ModeReduced  Mode = "reduced"
)

// Entitlement is the gate's answer for the current moment. It is
// derived fresh on every evaluation and must not be cached across
// activation changes.
type Entitlement struct {
	Mode               Mode
	Licensed           bool
	LicenseEmail       string
	TrialDaysRemaining int
	MaxParts           int // 0 means unlimited
	ExportEnabled      bool
	LicenseReason      string // why a stored key did not count, if any
}

// Gate derives user-facing entitlement from the state store and the
// offline verifier.
type Gate struct {
	verifier *licensekey.Verifier
	store    *Store
	logger   *zap.Logger
	now      func() time.Time
}

func NewGate(verifier *licensekey.Verifier, store *Store, logger *zap.Logger) *Gate {
	return &Gate{
		verifier: verifier,
		store:    store,
		logger:   logger.Named("EntitlementGate"),
		now:      time.Now,
	}
}

// Activate verifies a user-supplied key and, when valid, persists it.
// An invalid key is an ordinary outcome reported in the result, never an
// error.
func (g *Gate) Activate(rawKey string) (licensekey.Result, error) {
	result := g.verifier.Verify(rawKey)
	if !result.Valid {
		g.logger.Info("License key rejected during activation", zap.String("reason", result.Reason))
		return result, nil
	}

	if _, err := g.store.RecordActivation(result.Claims, rawKey); err != nil {
		return result, err
	}
	return result, nil
}

// Deactivate clears the stored activation. Trial bookkeeping survives.
func (g *Gate) Deactivate() error {
	_, err := g.store.Clear()
	return err
}

// Evaluate derives the current entitlement. Called on every application
// start and after every activation change.
func (g *Gate) Evaluate() (*Entitlement, error) {
	state, err := g.store.EnsureTrialStarted()
	if err != nil {
		return nil, err
	}

	ent := &Entitlement{}

	if state.Activated() {
		result := g.verifier.Verify(state.LicenseKey)
		if result.Valid {
			ent.Mode = ModeLicensed
			ent.Licensed = true
			ent.LicenseEmail = result.Claims.Email
			ent.ExportEnabled = true
			return ent, nil
		}

		g.logger.Warn("Stored license key no longer verifies",
			zap.String("reason", result.Reason))
		ent.LicenseReason = result.Reason
	}

	ent.TrialDaysRemaining = trialDaysRemaining(state.TrialStartedAt, g.now())
	if ent.TrialDaysRemaining > 0 {
		ent.Mode = ModeTrial
		ent.ExportEnabled = true
		return ent, nil
	}

	ent.Mode = ModeReduced
	ent.MaxParts = ReducedModeMaxParts
	ent.ExportEnabled = false
	return ent, nil
}

// trialDaysRemaining is max(0, ceil(trialStart + TrialLengthDays - now))
// in whole days. An unset trial start counts as started now.
func trialDaysRemaining(trialStartedAt *time.Time, now time.Time) int {
	if trialStartedAt == nil {
		return TrialLengthDays
	}

	trialEnd := trialStartedAt.Add(TrialLengthDays * 24 * time.Hour)
	remaining := trialEnd.Sub(now)
	if remaining <= 0 {
		return 0
	}

	return int(math.Ceil(remaining.Hours() / 24))
}
