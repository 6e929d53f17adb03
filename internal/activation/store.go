package activation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/carvdstudio/carvd-licensing/internal/licensekey"
	"go.uber.org/zap"
)

// State is the application's persisted belief about licensing. Absent
// fields stay unset; there are no schema migrations. TrialStartedAt is a
// best-effort deterrent only, not a security boundary: a user wiping the
// file restarts their trial and that is accepted.
type State struct {
	LicenseKey         string     `json:"licenseKey,omitempty"`
	LicenseEmail       string     `json:"licenseEmail,omitempty"`
	LicenseOrderID     string     `json:"licenseOrderId,omitempty"`
	LicenseActivatedAt *time.Time `json:"licenseActivatedAt,omitempty"`
	TrialStartedAt     *time.Time `json:"trialStartedAt,omitempty"`
}

// Activated reports whether a verified key has been recorded.
func (s *State) Activated() bool {
	return s.LicenseKey != ""
}

// Store persists State as JSON in the user's configuration directory.
// It is touched only from the application's single privileged process:
// one writer, no background mutation, so read-then-write sequences are
// effectively serial and need no locking.
type Store struct {
	path   string
	logger *zap.Logger
}

func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger.Named("ActivationStore"),
	}
}

// DefaultPath resolves the per-user state file location.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, "carvd-studio", "license.json"), nil
}

// Load returns the current state, or a zero state if the file has never
// been written.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("failed to read license state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse license state file: %w", err)
	}
	return &state, nil
}

func (s *Store) save(state *State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create license state directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal license state: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write license state file: %w", err)
	}
	return nil
}

// RecordActivation persists verified claims alongside the raw key and an
// activation timestamp. Trial bookkeeping is untouched.
func (s *Store) RecordActivation(claims *licensekey.Claims, rawKey string) (*State, error) {
	state, err := s.Load()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	state.LicenseKey = rawKey
	state.LicenseEmail = claims.Email
	state.LicenseOrderID = claims.OrderID
	state.LicenseActivatedAt = &now

	if err := s.save(state); err != nil {
		return nil, err
	}

	s.logger.Info("License activation recorded",
		zap.String("order_id", claims.OrderID))
	return state, nil
}

// Clear removes the activation fields while preserving trial bookkeeping.
func (s *Store) Clear() (*State, error) {
	state, err := s.Load()
	if err != nil {
		return nil, err
	}

	state.LicenseKey = ""
	state.LicenseEmail = ""
	state.LicenseOrderID = ""
	state.LicenseActivatedAt = nil

	if err := s.save(state); err != nil {
		return nil, err
	}

	s.logger.Info("License activation cleared")
	return state, nil
}

// EnsureTrialStarted sets TrialStartedAt exactly once. Re-running it is
// a no-op when the timestamp is already set.
func (s *Store) EnsureTrialStarted() (*State, error) {
	state, err := s.Load()
	if err != nil {
		return nil, err
	}

	if state.TrialStartedAt != nil {
		return state, nil
	}

	now := time.Now().UTC()
	state.TrialStartedAt = &now

	if err := s.save(state); err != nil {
		return nil, err
	}

	s.logger.Info("Trial period started", zap.Time("trial_started_at", now))
	return state, nil
}
