package remito

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// Transactor runs f inside a database transaction.
type Transactor interface {
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
}

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Transactor
	Validate() error
	MustValidate()
	Identities() Identities
	Tenants() Tenants
	Statuses() StatusStore
	Documents() DocumentStore
	Audit() AuditStore
}

type mngr struct {
	db         *bun.DB
	identities Identities
	tenants    Tenants
	statuses   StatusStore
	documents  DocumentStore
	audit      AuditStore
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:         db,
		identities: NewIdentitiesRepository(db),
		tenants:    NewTenantsRepository(db),
		statuses:   NewStatusRepository(db),
		documents:  NewDocumentRepository(db),
		audit:      NewAuditRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository manager requires a database")
	}
	if m.identities == nil {
		return errors.New("repository identities should be initialized")
	}
	if m.tenants == nil {
		return errors.New("repository tenants should be initialized")
	}
	if m.statuses == nil {
		return errors.New("repository statuses should be initialized")
	}
	if m.documents == nil {
		return errors.New("repository documents should be initialized")
	}
	if m.audit == nil {
		return errors.New("repository audit should be initialized")
	}
	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Identities() Identities {
	return m.identities
}

func (m mngr) Tenants() Tenants {
	return m.tenants
}

func (m mngr) Statuses() StatusStore {
	return m.statuses
}

func (m mngr) Documents() DocumentStore {
	return m.documents
}

func (m mngr) Audit() AuditStore {
	return m.audit
}
