package remito

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Identities is the identity repository.
type Identities interface {
	repository.Repository[*IdentityRecord]
	IdentityStore

	Register(ctx context.Context, record *IdentityRecord) (*IdentityRecord, error)
	RegisterTx(ctx context.Context, tx bun.IDB, record *IdentityRecord) (*IdentityRecord, error)
	FindByEmail(ctx context.Context, email string) (Identity, error)
}

type identities struct {
	repository.Repository[*IdentityRecord]
	db *bun.DB
}

var _ Identities = (*identities)(nil)

func NewIdentitiesRepository(db *bun.DB) Identities {
	repo := repository.NewRepository[*IdentityRecord](db, repository.ModelHandlers[*IdentityRecord]{
		NewRecord: func() *IdentityRecord { return &IdentityRecord{} },
		GetID: func(r *IdentityRecord) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *IdentityRecord, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})
	return &identities{Repository: repo, db: db}
}

func (a *identities) Register(ctx context.Context, record *IdentityRecord) (*IdentityRecord, error) {
	return a.RegisterTx(ctx, a.db, record)
}

func (a *identities) RegisterTx(ctx context.Context, tx bun.IDB, record *IdentityRecord) (*IdentityRecord, error) {
	if record == nil {
		return nil, raise(ErrInvalidInput, "identity is required", nil)
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Email = strings.ToLower(strings.TrimSpace(record.Email))
	if err := record.Identity().Validate(); err != nil {
		return nil, err
	}
	return a.Repository.CreateTx(ctx, tx, record)
}

// FindIdentity implements IdentityStore.
func (a *identities) FindIdentity(ctx context.Context, id string) (Identity, error) {
	return a.find(ctx, "id", strings.TrimSpace(id))
}

func (a *identities) FindByEmail(ctx context.Context, email string) (Identity, error) {
	return a.find(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (a *identities) find(ctx context.Context, column, value string) (Identity, error) {
	if value == "" {
		return Identity{}, raise(ErrNotFound, "identity not found", nil)
	}
	if column == "id" {
		if _, err := uuid.Parse(value); err != nil {
			return Identity{}, raise(ErrNotFound, "identity not found", map[string]any{"id": value})
		}
	}

	record := &IdentityRecord{}
	err := a.db.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return Identity{}, raise(ErrNotFound, "identity not found", map[string]any{column: value})
		}
		return Identity{}, persistenceError(err, "failed to load identity", map[string]any{column: value})
	}
	return record.Identity(), nil
}
