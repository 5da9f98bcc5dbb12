package remito

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Identity is an authenticated principal. It is a value: a fresh snapshot is
// taken every time a session is issued or refreshed.
type Identity struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id,omitempty"`
	Role     Role   `json:"role"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// IsZero reports whether the identity carries no principal.
func (i Identity) IsZero() bool {
	return strings.TrimSpace(i.ID) == ""
}

// Validate checks the identity claims. Only SUPERADMIN identities may omit a tenant.
func (i Identity) Validate() error {
	err := validation.ValidateStruct(&i,
		validation.Field(&i.ID, validation.Required),
		validation.Field(&i.Email, is.Email),
		validation.Field(&i.Role, validation.By(func(value any) error {
			role, _ := value.(Role)
			if !role.IsValid() {
				return errors.New("must be a known role")
			}
			return nil
		})),
	)
	if err == nil && i.Role != RoleSuperAdmin && strings.TrimSpace(i.TenantID) == "" {
		err = errors.New("tenant_id: cannot be blank.")
	}
	if err != nil {
		return raise(ErrInvalidInput, "invalid identity", map[string]any{"fields": err.Error()})
	}
	return nil
}

// BelongsTo reports whether the identity is scoped to tenantID.
func (i Identity) BelongsTo(tenantID string) bool {
	return i.TenantID != "" && i.TenantID == tenantID
}
