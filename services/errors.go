package services

import "errors"

// ErrorKind classifies a failed operation. Controllers map kinds onto HTTP
// statuses; services never return partial state alongside one of these.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindForbidden    ErrorKind = "forbidden"
	KindInvalidState ErrorKind = "invalid_state"
	KindConflict     ErrorKind = "conflict"
	KindNotFound     ErrorKind = "not_found"
)

// DomainError carries the kind and a human-readable reason.
type DomainError struct {
	Kind    ErrorKind
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func ValidationError(message string) error {
	return &DomainError{Kind: KindValidation, Message: message}
}

func Forbidden(message string) error {
	return &DomainError{Kind: KindForbidden, Message: message}
}

func InvalidState(message string) error {
	return &DomainError{Kind: KindInvalidState, Message: message}
}

func Conflict(message string) error {
	return &DomainError{Kind: KindConflict, Message: message}
}

func NotFound(message string) error {
	return &DomainError{Kind: KindNotFound, Message: message}
}

// KindOf extracts the error kind; ok is false for non-domain errors.
func KindOf(err error) (ErrorKind, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

func isKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func IsValidation(err error) bool   { return isKind(err, KindValidation) }
func IsForbidden(err error) bool    { return isKind(err, KindForbidden) }
func IsInvalidState(err error) bool { return isKind(err, KindInvalidState) }
func IsConflict(err error) bool     { return isKind(err, KindConflict) }
func IsNotFound(err error) bool     { return isKind(err, KindNotFound) }
