package remito

import "strings"

// Guard resolves the effective identity of a session and enforces tenant
// scoping. It holds no state and has no side effects.
type Guard struct{}

// NewGuard returns a tenant scope guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Resolve returns the acting identity or ErrUnauthorized when none can be resolved.
func (g *Guard) Resolve(session *EffectiveSession) (Identity, error) {
	if err := session.Validate(); err != nil {
		if IsUnauthorized(err) {
			return Identity{}, err
		}
		return Identity{}, raise(ErrUnauthorized, "session is not valid", map[string]any{"reason": err.Error()})
	}
	return session.Acting(), nil
}

// CanAccess reports whether identity may touch resources owned by tenantID.
func (g *Guard) CanAccess(identity Identity, tenantID string) bool {
	if identity.Role.IsCrossTenant() {
		return true
	}
	return identity.Role.IsValid() && identity.BelongsTo(strings.TrimSpace(tenantID))
}

// Authorize resolves the session and checks it may act on tenantID.
func (g *Guard) Authorize(session *EffectiveSession, tenantID string) (Identity, error) {
	identity, err := g.Resolve(session)
	if err != nil {
		return Identity{}, err
	}
	if strings.TrimSpace(tenantID) == "" {
		return Identity{}, raise(ErrInvalidInput, "tenant is required", nil)
	}
	if !g.CanAccess(identity, tenantID) {
		return Identity{}, raise(ErrForbidden, "tenant access denied", map[string]any{
			"tenant_id": tenantID,
			"user_id":   identity.ID,
		})
	}
	return identity, nil
}

// RequireRole resolves the session and checks its role meets minRole.
func (g *Guard) RequireRole(session *EffectiveSession, minRole Role) (Identity, error) {
	identity, err := g.Resolve(session)
	if err != nil {
		return Identity{}, err
	}
	if !identity.Role.IsAtLeast(minRole) {
		return Identity{}, raise(ErrForbidden, "role not allowed", map[string]any{
			"role":     identity.Role.String(),
			"required": minRole.String(),
		})
	}
	return identity, nil
}

// RequireTenantRole combines Authorize and RequireRole.
func (g *Guard) RequireTenantRole(session *EffectiveSession, tenantID string, minRole Role) (Identity, error) {
	identity, err := g.Authorize(session, tenantID)
	if err != nil {
		return Identity{}, err
	}
	if !identity.Role.IsAtLeast(minRole) {
		return Identity{}, raise(ErrForbidden, "role not allowed", map[string]any{
			"role":      identity.Role.String(),
			"required":  minRole.String(),
			"tenant_id": tenantID,
		})
	}
	return identity, nil
}

// RequireTenantAdmin is RequireTenantRole with RoleAdmin.
func (g *Guard) RequireTenantAdmin(session *EffectiveSession, tenantID string) (Identity, error) {
	return g.RequireTenantRole(session, tenantID, RoleAdmin)
}

// TargetTenant picks the tenant a request operates on. SUPERADMIN must name
// one explicitly; everybody else is pinned to their own tenant.
func (g *Guard) TargetTenant(session *EffectiveSession, requested string) (string, Identity, error) {
	identity, err := g.Resolve(session)
	if err != nil {
		return "", Identity{}, err
	}

	requested = strings.TrimSpace(requested)
	if identity.Role.IsCrossTenant() {
		if requested == "" {
			requested = identity.TenantID
		}
		if requested == "" {
			return "", Identity{}, raise(ErrInvalidInput, "target tenant is required", nil)
		}
		return requested, identity, nil
	}

	if requested != "" && requested != identity.TenantID {
		return "", Identity{}, raise(ErrForbidden, "tenant access denied", map[string]any{
			"tenant_id": requested,
			"user_id":   identity.ID,
		})
	}
	return identity.TenantID, identity, nil
}
