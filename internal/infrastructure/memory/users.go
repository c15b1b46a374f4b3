// Package memory holds process-local implementations of the credential store
// and the access-token cache. Nothing here survives a restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-verify-api/internal/domain"
)

// UserRepo is an in-memory credential store keyed by normalized user id.
type UserRepo struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]domain.User)}
}

func (r *UserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	u, ok := r.users[domain.NormalizeID(id)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("user %q: %w", id, domain.ErrNotFound)
	}
	return &u, nil
}

// Insert stores u unless a user with the same normalized id already exists.
func (r *UserRepo) Insert(_ context.Context, u *domain.User) error {
	key := u.Key()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[key]; ok {
		return fmt.Errorf("user %q: %w", u.ID, domain.ErrConflict)
	}
	r.users[key] = *u
	return nil
}

// Update replaces the stored record for u.ID.
func (r *UserRepo) Update(_ context.Context, u *domain.User) error {
	key := u.Key()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[key]; !ok {
		return fmt.Errorf("user %q: %w", u.ID, domain.ErrNotFound)
	}
	r.users[key] = *u
	return nil
}
