package remito

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Tenant is a company scoped partition of data.
type Tenant struct {
	bun.BaseModel `bun:"table:tenants,alias:tnt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull,unique" json:"name"`
	Active        bool       `bun:"active,notnull" json:"active"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IdentityRecord is the persisted form of an Identity. Credentials live in a
// separate store and never touch this table.
type IdentityRecord struct {
	bun.BaseModel `bun:"table:identities,alias:idn"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	TenantID      *uuid.UUID `bun:"tenant_id,nullzero,type:uuid" json:"tenant_id,omitempty"`
	Role          string     `bun:"role,notnull" json:"role"`
	Name          string     `bun:"name,notnull" json:"name"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Identity returns the value snapshot of the record.
func (r *IdentityRecord) Identity() Identity {
	if r == nil {
		return Identity{}
	}
	role, _ := ParseRole(r.Role)
	identity := Identity{
		ID:    r.ID.String(),
		Role:  role,
		Name:  r.Name,
		Email: r.Email,
	}
	if r.TenantID != nil && *r.TenantID != uuid.Nil {
		identity.TenantID = r.TenantID.String()
	}
	return identity
}

// StatusDefinition is a named, colored status a tenant's remitos may hold.
// Definitions are deactivated, never deleted.
type StatusDefinition struct {
	bun.BaseModel `bun:"table:status_definitions,alias:sdf"`
	ID            string    `bun:"id,pk" json:"id"`
	TenantID      string    `bun:"tenant_id,notnull,unique:status_tenant_name" json:"tenant_id"`
	Name          string    `bun:"name,notnull,unique:status_tenant_name" json:"name"`
	Color         string    `bun:"color,notnull" json:"color"`
	Active        bool      `bun:"active,notnull" json:"active"`
	IsDefault     bool      `bun:"is_default,notnull" json:"is_default"`
	SortOrder     int       `bun:"sort_order,notnull" json:"sort_order"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Document is a remito. Status is a free form name validated against the
// tenant catalog at transition time, not a foreign key.
type Document struct {
	bun.BaseModel   `bun:"table:remitos,alias:rmt"`
	ID              string    `bun:"id,pk" json:"id"`
	TenantID        string    `bun:"tenant_id,notnull" json:"tenant_id"`
	Number          string    `bun:"number,notnull" json:"number"`
	Status          string    `bun:"status,notnull" json:"status"`
	StatusChangedAt time.Time `bun:"status_changed_at,notnull" json:"status_changed_at"`
	CreatedBy       string    `bun:"created_by,notnull" json:"created_by"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt       time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// StatusHistoryEntry is one immutable step in a remito's lifecycle.
type StatusHistoryEntry struct {
	bun.BaseModel  `bun:"table:remito_status_history,alias:rsh"`
	ID             string    `bun:"id,pk" json:"id"`
	DocumentID     string    `bun:"document_id,notnull" json:"document_id"`
	TenantID       string    `bun:"tenant_id,notnull" json:"tenant_id"`
	Status         string    `bun:"status,notnull" json:"status"`
	At             time.Time `bun:"at,notnull" json:"at"`
	ByUserID       string    `bun:"by_user_id,notnull" json:"by_user_id"`
	ImpersonatorID string    `bun:"impersonator_id,nullzero" json:"impersonator_id,omitempty"`
	Note           string    `bun:"note,nullzero" json:"note,omitempty"`
}

// AuditEntry is a persisted activity record. Rows are only ever inserted.
type AuditEntry struct {
	bun.BaseModel  `bun:"table:activity_log,alias:act"`
	ID             string         `bun:"id,pk" json:"id"`
	TenantID       string         `bun:"tenant_id,nullzero" json:"tenant_id,omitempty"`
	UserID         string         `bun:"user_id,notnull" json:"user_id"`
	ImpersonatorID string         `bun:"impersonator_id,nullzero" json:"impersonator_id,omitempty"`
	Action         string         `bun:"action,notnull" json:"action"`
	Description    string         `bun:"description,notnull" json:"description"`
	Metadata       map[string]any `bun:"metadata,type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time      `bun:"created_at,notnull" json:"created_at"`
}
