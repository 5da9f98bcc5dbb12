package remito

import (
	"context"
	"time"
)

// IdentityStore resolves identities by id. Missing identities are reported
// with ErrNotFound.
type IdentityStore interface {
	FindIdentity(ctx context.Context, id string) (Identity, error)
}

// TenantStore persists tenants.
type TenantStore interface {
	CreateTenant(ctx context.Context, tenant *Tenant) (*Tenant, error)
	GetTenant(ctx context.Context, id string) (*Tenant, error)
	ListTenants(ctx context.Context, limit, offset int) ([]*Tenant, error)
	SetTenantActive(ctx context.Context, id string, active bool) (*Tenant, error)
}

// StatusStore persists status definitions. Creating or updating a default
// definition clears the previous default of the tenant in the same write.
type StatusStore interface {
	ListStatuses(ctx context.Context, tenantID string, activeOnly bool) ([]*StatusDefinition, error)
	GetStatus(ctx context.Context, id string) (*StatusDefinition, error)
	FindStatusByName(ctx context.Context, tenantID, name string) (*StatusDefinition, error)
	CreateStatus(ctx context.Context, status *StatusDefinition) error
	UpdateStatus(ctx context.Context, status *StatusDefinition) error
}

// DocumentStore persists remitos and their status history.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (*Document, error)
	ListDocuments(ctx context.Context, tenantID string, limit, offset int) ([]*Document, error)
	CreateDocument(ctx context.Context, doc *Document, initial *StatusHistoryEntry) error
	// ApplyTransition locks the document, sets its status and appends entry
	// in one transaction. entry.At and entry.ID are stamped from now once the
	// lock is held, so commit order and history order agree. It returns the
	// status held before the change.
	ApplyTransition(ctx context.Context, documentID string, entry *StatusHistoryEntry, now func() time.Time) (string, *Document, error)
	History(ctx context.Context, documentID string) ([]*StatusHistoryEntry, error)
}

// AuditStore persists activity entries. Lists are newest first.
type AuditStore interface {
	Append(ctx context.Context, entry *AuditEntry) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*AuditEntry, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*AuditEntry, error)
}
