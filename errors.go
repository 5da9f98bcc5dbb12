package remito

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeUnauthorized          = "UNAUTHORIZED"
	TextCodeForbidden             = "FORBIDDEN"
	TextCodeNotFound              = "NOT_FOUND"
	TextCodeInvalidTarget         = "INVALID_TARGET"
	TextCodeNoActiveImpersonation = "NO_ACTIVE_IMPERSONATION"
	TextCodeDuplicateName         = "DUPLICATE_NAME"
	TextCodeInvalidStatus         = "INVALID_STATUS"
	TextCodePersistence           = "PERSISTENCE_ERROR"
	TextCodeInvalidInput          = "INVALID_INPUT"
)

// ErrUnauthorized is returned when no identity can be resolved from the session
var ErrUnauthorized = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(goerrors.CodeUnauthorized)

// ErrForbidden is returned when the identity lacks the role or tenant rights
var ErrForbidden = goerrors.New("insufficient permissions", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrNotFound is returned for absent records and for records in another tenant
var ErrNotFound = goerrors.New("record not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrInvalidTarget is returned when an impersonation target is not allowed
var ErrInvalidTarget = goerrors.New("invalid impersonation target", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidTarget).
	WithCode(goerrors.CodeBadRequest)

// ErrNoActiveImpersonation is returned when stopping a session that is not impersonating
var ErrNoActiveImpersonation = goerrors.New("no active impersonation", goerrors.CategoryConflict).
	WithTextCode(TextCodeNoActiveImpersonation).
	WithCode(goerrors.CodeConflict)

// ErrDuplicateName is returned when a status name already exists for the tenant
var ErrDuplicateName = goerrors.New("status name already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateName).
	WithCode(goerrors.CodeConflict)

// ErrInvalidStatus is returned when the target status is unknown or inactive
var ErrInvalidStatus = goerrors.New("invalid status", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidStatus).
	WithCode(goerrors.CodeBadRequest)

// ErrPersistence is returned when a storage write fails
var ErrPersistence = goerrors.New("persistence error", goerrors.CategoryInternal).
	WithTextCode(TextCodePersistence).
	WithCode(goerrors.CodeInternal)

// ErrInvalidInput is returned when request values fail validation
var ErrInvalidInput = goerrors.New("invalid input", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidInput).
	WithCode(goerrors.CodeBadRequest)

// raise returns a copy of base so per-call metadata never leaks into the
// package level sentinel.
func raise(base *goerrors.Error, message string, metadata map[string]any) error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	if message != "" {
		clone.Message = message
	}
	clone.Source = base
	if len(metadata) > 0 {
		return clone.WithMetadata(metadata)
	}
	return clone
}

// persistenceError wraps a storage failure. Errors that already carry a
// remito text code are returned untouched.
func persistenceError(err error, message string, metadata map[string]any) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		return err
	}
	wrapped := goerrors.Wrap(err, goerrors.CategoryInternal, message).
		WithTextCode(TextCodePersistence).
		WithCode(goerrors.CodeInternal)
	if len(metadata) > 0 {
		return wrapped.WithMetadata(metadata)
	}
	return wrapped
}

// KindOf returns the remito text code carried by err, or an empty string.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr == nil {
		return ""
	}
	switch richErr.TextCode {
	case TextCodeUnauthorized, TextCodeForbidden, TextCodeNotFound,
		TextCodeInvalidTarget, TextCodeNoActiveImpersonation, TextCodeDuplicateName,
		TextCodeInvalidStatus, TextCodePersistence, TextCodeInvalidInput:
		return richErr.TextCode
	default:
		return ""
	}
}

// IsKind reports whether err carries the given text code.
func IsKind(err error, textCode string) bool {
	return textCode != "" && KindOf(err) == textCode
}

func IsUnauthorized(err error) bool { return IsKind(err, TextCodeUnauthorized) }

func IsForbidden(err error) bool { return IsKind(err, TextCodeForbidden) }

func IsNotFound(err error) bool { return IsKind(err, TextCodeNotFound) }

func IsInvalidTarget(err error) bool { return IsKind(err, TextCodeInvalidTarget) }

func IsNoActiveImpersonation(err error) bool { return IsKind(err, TextCodeNoActiveImpersonation) }

func IsDuplicateName(err error) bool { return IsKind(err, TextCodeDuplicateName) }

func IsInvalidStatus(err error) bool { return IsKind(err, TextCodeInvalidStatus) }

func IsPersistence(err error) bool { return IsKind(err, TextCodePersistence) }

func IsInvalidInput(err error) bool { return IsKind(err, TextCodeInvalidInput) }
