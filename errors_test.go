package remito_test

import (
	"errors"
	"fmt"
	"testing"

	remito "github.com/goliatone/go-remito"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"unauthorized", remito.ErrUnauthorized, remito.TextCodeUnauthorized},
		{"forbidden", remito.ErrForbidden, remito.TextCodeForbidden},
		{"not found", remito.ErrNotFound, remito.TextCodeNotFound},
		{"invalid target", remito.ErrInvalidTarget, remito.TextCodeInvalidTarget},
		{"no active impersonation", remito.ErrNoActiveImpersonation, remito.TextCodeNoActiveImpersonation},
		{"duplicate name", remito.ErrDuplicateName, remito.TextCodeDuplicateName},
		{"invalid status", remito.ErrInvalidStatus, remito.TextCodeInvalidStatus},
		{"persistence", remito.ErrPersistence, remito.TextCodePersistence},
		{"invalid input", remito.ErrInvalidInput, remito.TextCodeInvalidInput},
		{"wrapped", fmt.Errorf("outer: %w", remito.ErrNotFound), remito.TextCodeNotFound},
		{"plain", errors.New("boom"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, remito.KindOf(tt.err))
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, remito.IsUnauthorized(remito.ErrUnauthorized))
	assert.True(t, remito.IsForbidden(remito.ErrForbidden))
	assert.True(t, remito.IsNotFound(remito.ErrNotFound))
	assert.True(t, remito.IsInvalidTarget(remito.ErrInvalidTarget))
	assert.True(t, remito.IsNoActiveImpersonation(remito.ErrNoActiveImpersonation))
	assert.True(t, remito.IsDuplicateName(remito.ErrDuplicateName))
	assert.True(t, remito.IsInvalidStatus(remito.ErrInvalidStatus))
	assert.True(t, remito.IsPersistence(remito.ErrPersistence))
	assert.True(t, remito.IsInvalidInput(remito.ErrInvalidInput))

	assert.False(t, remito.IsNotFound(remito.ErrForbidden))
	assert.False(t, remito.IsKind(remito.ErrForbidden, ""))
}

func TestRaisedErrorsDoNotTouchSentinels(t *testing.T) {
	guard := remito.NewGuard()
	session := remito.NewSession(remito.Identity{ID: "u-1", TenantID: "t-1", Role: remito.RoleUser})

	_, err := guard.Authorize(session, "t-2")
	assert.True(t, remito.IsForbidden(err))
	assert.Empty(t, remito.ErrForbidden.Metadata)
	assert.Equal(t, "insufficient permissions", remito.ErrForbidden.Message)
}
