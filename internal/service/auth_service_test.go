package service

import (
	"context"
	"testing"
	"time"

	"github.com/carvdstudio/carvd-licensing/internal/config"
	"github.com/carvdstudio/carvd-licensing/internal/ierr"
	"github.com/carvdstudio/carvd-licensing/internal/storage/memstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(t *testing.T, ttl time.Duration) *AuthService {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	userRepo := memstorage.NewUserRepository(&config.AdminConfig{
		Username:     "support",
		PasswordHash: string(hash),
	})
	jwtCfg := &config.JWTConfig{
		Secret:   "test-session-secret",
		TokenTTL: ttl,
	}

	return NewAuthService(userRepo, jwtCfg, zap.NewNop())
}

func TestLoginAndValidateToken(t *testing.T) {
	svc := newTestAuthService(t, time.Hour)
	ctx := context.Background()

	token, err := svc.Login(ctx, "support", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "support", claims.Username)
	assert.Equal(t, "admin", claims.Role)
}

func TestLoginIsCaseInsensitiveOnUsername(t *testing.T) {
	svc := newTestAuthService(t, time.Hour)

	token, err := svc.Login(context.Background(), "SUPPORT", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestAuthService(t, time.Hour)
	ctx := context.Background()

	testCases := []struct {
		name     string
		username string
		password string
	}{
		{name: "wrong password", username: "support", password: "wrong"},
		{name: "unknown user", username: "intruder", password: "correct-horse"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tc.username, tc.password)
			assert.ErrorIs(t, err, ierr.ErrInvalidCredentials)
		})
	}
}

func TestValidateTokenRejectsExpiredSession(t *testing.T) {
	svc := newTestAuthService(t, -time.Minute)
	ctx := context.Background()

	token, err := svc.Login(ctx, "support", "correct-horse")
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ierr.ErrInvalidToken)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	issuer := newTestAuthService(t, time.Hour)
	token, err := issuer.Login(context.Background(), "support", "correct-horse")
	require.NoError(t, err)

	verifier := NewAuthService(
		memstorage.NewUserRepository(&config.AdminConfig{}),
		&config.JWTConfig{Secret: "different-secret", TokenTTL: time.Hour},
		zap.NewNop(),
	)

	_, err = verifier.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ierr.ErrInvalidToken)
}
