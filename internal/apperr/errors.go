// Package apperr defines the error taxonomy shared by the store and the HTTP layer.
package apperr

import (
	"errors"
	"strings"
)

// Kind classifies an error for translation to a response status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindConflict
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindStorage:
		return "storage"
	default:
		return "internal"
	}
}

// Sentinel errors, matched with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("permission denied")
	ErrConflict     = errors.New("conflict")
	ErrStorage      = errors.New("storage failure")
)

var sentinels = map[Kind]error{
	KindValidation:   ErrValidation,
	KindNotFound:     ErrNotFound,
	KindUnauthorized: ErrUnauthorized,
	KindForbidden:    ErrForbidden,
	KindConflict:     ErrConflict,
	KindStorage:      ErrStorage,
}

// Error is an application error carrying a message id for localization.
type Error struct {
	Kind      Kind
	MessageID string
	Fields    []string
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.MessageID)
	if len(e.Fields) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Fields, ", "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s, ok := sentinels[e.Kind]; ok {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Validation reports missing or empty required fields.
func Validation(fields ...string) *Error {
	return &Error{Kind: KindValidation, MessageID: "MissingFields", Fields: fields}
}

// Invalid reports a malformed request with a specific message.
func Invalid(messageID string) *Error {
	return &Error{Kind: KindValidation, MessageID: messageID}
}

// NotFound reports an unknown id or slug. entity is e.g. "Book".
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, MessageID: entity + "NotFound"}
}

// Unauthorized reports a missing or invalid principal.
func Unauthorized(messageID string) *Error {
	return &Error{Kind: KindUnauthorized, MessageID: messageID}
}

// Forbidden reports an ownership, role or identity mismatch.
func Forbidden(messageID string) *Error {
	return &Error{Kind: KindForbidden, MessageID: messageID}
}

// Conflict reports a uniqueness violation.
func Conflict(messageID string) *Error {
	return &Error{Kind: KindConflict, MessageID: messageID}
}

// Storage wraps a read, parse or write failure.
func Storage(err error) *Error {
	return &Error{Kind: KindStorage, MessageID: "StorageFailure", Err: err}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
