package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
	order []string
}

// NewMemoryRepository builds an in-memory user store for tests and local development.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) Create(_ context.Context, user User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email || existing.Mobile == user.Mobile {
			return "", ErrConflict
		}
	}
	user.ID = uuid.NewString()
	r.users[user.ID] = user
	r.order = append(r.order, user.ID)
	return user.ID, nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByEmailOrMobile(_ context.Context, identifier string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		user := r.users[id]
		if user.Email == identifier || user.Mobile == identifier {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *memoryRepository) UpdateStatus(_ context.Context, id string, status Status) error {
	return r.update(id, func(u *User) { u.Status = status })
}

func (r *memoryRepository) UpdateBalance(_ context.Context, id string, balance int64) error {
	return r.update(id, func(u *User) { u.Balance = balance })
}

func (r *memoryRepository) update(id string, mutate func(*User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	mutate(&user)
	user.UpdatedAt = time.Now().UTC()
	r.users[id] = user
	return nil
}

func (r *memoryRepository) List(_ context.Context, filter ListFilter) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	users := []User{}
	for _, id := range r.order {
		user := r.users[id]
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		if filter.Status != "" && user.Status != filter.Status {
			continue
		}
		if search != "" && !matchesSearch(user, search) {
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

func matchesSearch(user User, search string) bool {
	for _, field := range []string{user.Name, user.Email, user.Mobile} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}
