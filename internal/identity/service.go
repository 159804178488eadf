package identity

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Service manages the account lifecycle: registration, PIN verification and
// administrative updates.
type Service struct {
	repo   Repository
	hasher PINHasher
	now    func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository, hasher PINHasher) *Service {
	return &Service{repo: repo, hasher: hasher, now: func() time.Time { return time.Now().UTC() }}
}

// Register creates a pending account with a zero balance and a hashed PIN.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Mobile = strings.TrimSpace(in.Mobile)
	in.Email = NormalizeEmail(in.Email)
	if in.Role == "" {
		in.Role = RoleUser
	}

	switch {
	case in.Name == "":
		return User{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case in.Mobile == "":
		return User{}, fmt.Errorf("%w: mobile is required", ErrInvalidInput)
	case in.Email == "":
		return User{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	case in.PIN == "":
		return User{}, fmt.Errorf("%w: pin is required", ErrInvalidInput)
	case !in.Role.Valid():
		return User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}

	hash, err := s.hasher.Hash(in.PIN)
	if err != nil {
		return User{}, err
	}

	now := s.now()
	user := User{
		Name:      in.Name,
		Mobile:    in.Mobile,
		Email:     in.Email,
		PINHash:   hash,
		Role:      in.Role,
		Status:    StatusPending,
		Balance:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	id, err := s.repo.Create(ctx, user)
	if err != nil {
		return User{}, err
	}
	user.ID = id
	return user, nil
}

// Authenticate looks up the account by email or mobile and verifies the PIN.
func (s *Service) Authenticate(ctx context.Context, identifier, pin string) (User, error) {
	identifier = NormalizeIdentifier(identifier)
	if identifier == "" || pin == "" {
		return User{}, fmt.Errorf("%w: emailOrMobile and pin are required", ErrInvalidInput)
	}

	user, err := s.repo.FindByEmailOrMobile(ctx, identifier)
	if err != nil {
		return User{}, err
	}
	if !s.hasher.Verify(pin, user.PINHash) {
		return User{}, ErrUnauthorized
	}
	return user, nil
}

// Get returns the account with the given identifier.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, strings.TrimSpace(id))
}

// List returns accounts matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]User, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, filter.Role)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	return s.repo.List(ctx, filter)
}

// UpdateStatus moves an account to status.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.repo.UpdateStatus(ctx, strings.TrimSpace(id), status)
}

// UpdateBalance overwrites an account balance. Balances are never negative.
func (s *Service) UpdateBalance(ctx context.Context, id string, balance int64) error {
	if balance < 0 {
		return fmt.Errorf("%w: balance must not be negative", ErrInvalidInput)
	}
	return s.repo.UpdateBalance(ctx, strings.TrimSpace(id), balance)
}
