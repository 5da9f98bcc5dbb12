package remito

import "strings"

// Role is the closed set of roles an identity may hold.
// Roles are totally ordered: RoleUser < RoleAdmin < RoleSuperAdmin.
type Role int

const (
	// RoleUnknown is the zero value and never authorizes anything
	RoleUnknown Role = iota
	// RoleUser operates remitos inside its own tenant
	RoleUser
	// RoleAdmin manages statuses and users of its own tenant
	RoleAdmin
	// RoleSuperAdmin acts across tenants and manages tenants
	RoleSuperAdmin
)

const (
	roleNameUser       = "USER"
	roleNameAdmin      = "ADMIN"
	roleNameSuperAdmin = "SUPERADMIN"
)

// IsValid checks if the role is one of the predefined roles
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// String returns the canonical upper case name of the role.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return roleNameUser
	case RoleAdmin:
		return roleNameAdmin
	case RoleSuperAdmin:
		return roleNameSuperAdmin
	default:
		return ""
	}
}

// Compare returns -1, 0 or 1 depending on how r ranks against other.
func (r Role) Compare(other Role) int {
	switch {
	case r < other:
		return -1
	case r > other:
		return 1
	default:
		return 0
	}
}

// IsAtLeast checks if this role meets the minimum required level
func (r Role) IsAtLeast(minRole Role) bool {
	if !r.IsValid() || !minRole.IsValid() {
		return false
	}
	return r >= minRole
}

// CanImpersonate reports whether the role may start an impersonation.
func (r Role) CanImpersonate() bool {
	return r.IsAtLeast(RoleAdmin)
}

// CanManageStatuses reports whether the role may mutate a tenant status catalog.
func (r Role) CanManageStatuses() bool {
	return r.IsAtLeast(RoleAdmin)
}

// CanManageTenants reports whether the role may create or toggle tenants.
func (r Role) CanManageTenants() bool {
	return r == RoleSuperAdmin
}

// IsCrossTenant reports whether the role is exempt from tenant scoping.
func (r Role) IsCrossTenant() bool {
	return r == RoleSuperAdmin
}

// MarshalText implements encoding.TextMarshaler
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *Role) UnmarshalText(text []byte) error {
	role, ok := ParseRole(string(text))
	if !ok {
		return raise(ErrInvalidInput, "unknown role", map[string]any{"role": string(text)})
	}
	*r = role
	return nil
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []Role {
	return []Role{
		RoleUser,
		RoleAdmin,
		RoleSuperAdmin,
	}
}

// ParseRole safely parses a string into a Role. Matching is case insensitive.
func ParseRole(roleStr string) (Role, bool) {
	switch strings.ToUpper(strings.TrimSpace(roleStr)) {
	case roleNameUser:
		return RoleUser, true
	case roleNameAdmin:
		return RoleAdmin, true
	case roleNameSuperAdmin:
		return RoleSuperAdmin, true
	default:
		return RoleUnknown, false
	}
}
