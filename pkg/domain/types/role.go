package types

import (
	"slices"
	"strings"
)

// Role is the authenticated caller's role as issued in the access token
type Role string

const (
	RolePatient      Role = "patient"
	RoleNutritionist Role = "nutritionist"
	RoleAdmin        Role = "admin"
)

func (r Role) String() string {
	return string(r)
}

// StaffPolicy decides which roles are treated as staff. Push notifications and
// access to assigned conversations depend on it. Supervisor roles are staff that may
// access every conversation, assigned to them or not.
type StaffPolicy struct {
	roles       []Role
	supervisors []Role
}

// DefaultStaffRoles returns the roles treated as staff when none are configured
func DefaultStaffRoles() []Role {
	return []Role{RoleNutritionist, RoleAdmin}
}

// DefaultSupervisorRoles returns the supervisor roles used when none are configured
func DefaultSupervisorRoles() []Role {
	return []Role{RoleAdmin}
}

// NewStaffPolicy creates a StaffPolicy with the default supervisors. Role comparison
// is case-insensitive.
func NewStaffPolicy(roles ...Role) StaffPolicy {
	if len(roles) == 0 {
		roles = DefaultStaffRoles()
	}
	return StaffPolicy{
		roles:       normalizeRoles(roles),
		supervisors: normalizeRoles(DefaultSupervisorRoles()),
	}
}

// WithSupervisors returns a copy of the policy whose supervisors are exactly roles.
// No roles means no supervisors.
func (p StaffPolicy) WithSupervisors(roles ...Role) StaffPolicy {
	return StaffPolicy{
		roles:       slices.Clone(p.roles),
		supervisors: normalizeRoles(roles),
	}
}

func normalizeRoles(roles []Role) []Role {
	normalized := make([]Role, 0, len(roles))
	for _, r := range roles {
		n := normalizeRole(r)
		if n != "" && !slices.Contains(normalized, n) {
			normalized = append(normalized, n)
		}
	}
	return normalized
}

func normalizeRole(r Role) Role {
	return Role(strings.ToLower(strings.TrimSpace(string(r))))
}

// IsStaff reports whether role is treated as staff
func (p StaffPolicy) IsStaff(role Role) bool {
	return slices.Contains(p.roles, normalizeRole(role))
}

// IsSupervisor reports whether role is staff with access to every conversation
func (p StaffPolicy) IsSupervisor(role Role) bool {
	return p.IsStaff(role) && slices.Contains(p.supervisors, normalizeRole(role))
}

// Roles returns a copy of the configured staff roles
func (p StaffPolicy) Roles() []Role {
	return slices.Clone(p.roles)
}

// SupervisorRoles returns a copy of the configured supervisor roles
func (p StaffPolicy) SupervisorRoles() []Role {
	return slices.Clone(p.supervisors)
}
