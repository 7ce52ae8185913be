package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every caller-correctable failure unwraps to exactly one of these.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Error is a caller-correctable failure with a client-facing message.
type Error struct {
	Kind    error
	Message string
	// Field names the offending input or unique attribute, when known.
	Field string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// NewError builds an Error of the given kind.
func NewError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithField returns a copy of e that names field.
func (e *Error) WithField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

// Account errors
var (
	ErrAdminNotFound           = &Error{Kind: ErrNotFound, Message: "admin not found"}
	ErrMemberNotFound          = &Error{Kind: ErrNotFound, Message: "member not found"}
	ErrEmailAlreadyRegistered  = &Error{Kind: ErrConflict, Message: "email is already registered", Field: "email"}
	ErrDocumentIDAlreadyInUse  = &Error{Kind: ErrConflict, Message: "document id is already registered", Field: "documentId"}
	ErrExternalIDAlreadyLinked = &Error{Kind: ErrConflict, Message: "external identity is already linked", Field: "googleId"}
	ErrInvalidCredentials      = &Error{Kind: ErrUnauthorized, Message: "invalid credentials"}
	ErrInvalidToken            = &Error{Kind: ErrUnauthorized, Message: "invalid or expired token"}
	ErrMissingAuthorization    = &Error{Kind: ErrUnauthorized, Message: "missing authorization"}
	ErrNoPermission            = &Error{Kind: ErrForbidden, Message: "you do not have permission to perform this action"}
)

// Catalog and subscription errors
var (
	ErrMembershipNotFound   = &Error{Kind: ErrNotFound, Message: "membership not found"}
	ErrSubscriptionNotFound = &Error{Kind: ErrNotFound, Message: "subscription not found"}
	ErrNoActiveSubscription = &Error{Kind: ErrNotFound, Message: "member has no active subscription"}
	ErrInvalidPaymentStatus = &Error{Kind: ErrValidation, Message: "payment status must be pending, completed or failed", Field: "paymentStatus"}
)

