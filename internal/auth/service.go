package auth

import (
	"context"
	"time"

	"github.com/congo-pay/accounts/internal/identity"
)

// Session is the outcome of a successful login.
type Session struct {
	Token     string
	UserID    string
	Role      identity.Role
	ExpiresAt time.Time
}

// Service issues access tokens for verified credentials.
type Service struct {
	ids    *identity.Service
	tokens *TokenIssuer
	policy RolePolicy
	ttl    time.Duration
}

// NewService wires credential verification, role resolution and token issuance.
func NewService(ids *identity.Service, tokens *TokenIssuer, policy RolePolicy, ttl time.Duration) *Service {
	return &Service{ids: ids, tokens: tokens, policy: policy, ttl: ttl}
}

// Login verifies the PIN for an email or mobile and returns a signed token.
func (s *Service) Login(ctx context.Context, identifier, pin string) (Session, error) {
	user, err := s.ids.Authenticate(ctx, identifier, pin)
	if err != nil {
		return Session{}, err
	}

	role := s.policy.Resolve(user)
	token, exp, err := s.tokens.Issue(user.ID, role, s.ttl)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, UserID: user.ID, Role: role, ExpiresAt: exp}, nil
}
