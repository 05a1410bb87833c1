package shared

import (
	"fmt"
	"strings"
)

// Role is a staff role within an organization
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
	RoleWaiter  Role = "waiter"
	RoleKitchen Role = "kitchen"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleCashier, RoleWaiter, RoleKitchen:
		return true
	}
	return false
}

// HandlesMoney reports whether the role may settle credit, refund or change billing settings
func (r Role) HandlesMoney() bool {
	return r == RoleAdmin || r == RoleCashier
}

// ParseRole parses a role name case-insensitively
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", NewValidationError(fmt.Sprintf("Unknown role %q", s))
	}
	return r, nil
}

// Actor is the authenticated caller of an operation
type Actor struct {
	TenantID string
	UserID   string
	Name     string
	Role     Role
}

// Allow fails with FORBIDDEN unless the actor holds one of roles
func (a Actor) Allow(roles ...Role) error {
	for _, r := range roles {
		if a.Role == r {
			return nil
		}
	}
	return NewDomainError(CodeForbidden, fmt.Sprintf("Role %q is not allowed to perform this action", a.Role))
}

// DisplayName is what payment records and orders show as the acting user
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.UserID
}
