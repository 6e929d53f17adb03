package memstorage

import (
	"context"
	"strings"
	"sync"

	"github.com/carvdstudio/carvd-licensing/internal/config"
	"github.com/carvdstudio/carvd-licensing/internal/domain/user"
	"github.com/carvdstudio/carvd-licensing/internal/ierr"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository holds the admin account in memory, seeded from the
// deployment configuration. There is no user management surface; support
// staff share a single operator account.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*user.User
}

func NewUserRepository(cfg *config.AdminConfig) *UserRepository {
	repo := &UserRepository{
		users: make(map[string]*user.User),
	}

	if cfg.Username != "" && cfg.PasswordHash != "" {
		adminUser := &user.User{
			ID:           uuid.New(),
			Username:     cfg.Username,
			PasswordHash: cfg.PasswordHash,
			Role:         "admin",
		}
		repo.users[strings.ToLower(adminUser.Username)] = adminUser
	}

	return repo
}

var _ user.Repository = (*UserRepository)(nil)

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[strings.ToLower(username)]
	if !ok {
		return nil, ierr.ErrUserNotFound
	}

	userCopy := *u
	return &userCopy, nil
}

func CheckPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
