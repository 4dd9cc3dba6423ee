// Package apperr is the error taxonomy shared by services and handlers.
// Services return *Error for expected failures; anything else reaching a
// handler is treated as an unexpected fault and answered with 500.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindForbidden
	KindNotFound
	KindConflict
	KindIntegration
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindIntegration:
		return "integration"
	}
	return "internal"
}

// Status maps a kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindIntegration:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

type Error struct {
	Kind    Kind
	Message string
	// Fields carries per-field validation messages when present.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error  { return newf(KindValidation, format, args...) }
func Auth(format string, args ...any) *Error        { return newf(KindAuth, format, args...) }
func Forbidden(format string, args ...any) *Error   { return newf(KindForbidden, format, args...) }
func NotFound(format string, args ...any) *Error    { return newf(KindNotFound, format, args...) }
func Conflict(format string, args ...any) *Error    { return newf(KindConflict, format, args...) }
func Integration(format string, args ...any) *Error { return newf(KindIntegration, format, args...) }

// Invalid builds a validation error from a field -> message map.
func Invalid(fields map[string]string) *Error {
	msg := "Validation failed"
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		msg = fields[keys[0]]
	}
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

// Wrap attaches cause to e and returns e.
func (e *Error) Wrap(cause error) *Error {
	e.Err = cause
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status returns the HTTP status for err.
func Status(err error) int {
	return KindOf(err).Status()
}
