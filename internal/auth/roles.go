package auth

import (
	"strings"

	"github.com/congo-pay/accounts/internal/identity"
)

// RolePolicy decides which role a token carries. Accounts whose email or
// mobile is on the admin allowlist are admins regardless of the stored role;
// stored agents stay agents; everyone else is a user.
type RolePolicy struct {
	admins map[string]struct{}
}

// NewRolePolicy builds a policy from the configured admin identifiers.
func NewRolePolicy(adminIdentifiers []string) RolePolicy {
	admins := make(map[string]struct{}, len(adminIdentifiers))
	for _, id := range adminIdentifiers {
		if id = identity.NormalizeIdentifier(id); id != "" {
			admins[id] = struct{}{}
		}
	}
	return RolePolicy{admins: admins}
}

// Resolve returns the role to embed in a token for user.
func (p RolePolicy) Resolve(user identity.User) identity.Role {
	if p.isAdmin(user.Email) || p.isAdmin(user.Mobile) {
		return identity.RoleAdmin
	}
	if user.Role == identity.RoleAgent {
		return identity.RoleAgent
	}
	return identity.RoleUser
}

func (p RolePolicy) isAdmin(identifier string) bool {
	if strings.TrimSpace(identifier) == "" {
		return false
	}
	_, ok := p.admins[identity.NormalizeIdentifier(identifier)]
	return ok
}
