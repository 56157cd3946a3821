package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a domain error.
type Kind int

const (
	// KindUnclassified is any error that does not carry a known kind.
	KindUnclassified Kind = iota

	// KindNotFound means the requested resource does not exist.
	KindNotFound

	// KindValidation means submitted input failed field validation.
	KindValidation

	// KindOperation means a business rule rejected the operation.
	KindOperation

	// KindAuthorization means the principal lacks permission.
	KindAuthorization
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindOperation:
		return "operation"
	case KindAuthorization:
		return "authorization"
	default:
		return "unclassified"
	}
}

// Recoverable reports whether the application shell can keep running after
// an error of this kind.
func (k Kind) Recoverable() bool {
	return k != KindUnclassified
}

// Error is a domain error with an explicit kind.
type Error struct {
	Kind    Kind
	Op      string            // operation that failed, e.g. "store.get"
	Message string            // human readable message
	Fields  map[string]string // field -> problem, for validation errors
	Err     error             // optional underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString(" (")
		for i, name := range names {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(e.Fields[name])
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code for this error.
func (e *Error) StatusCode() int {
	return StatusCode(e.Kind)
}

// NotFound creates a KindNotFound error for a missing resource.
func NotFound(resource string, id any) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, id),
	}
}

// Validation creates a KindValidation error. fields maps field names to
// problems and may be nil.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// Operation creates a KindOperation error for a business-rule violation.
func Operation(format string, args ...any) *Error {
	return &Error{Kind: KindOperation, Message: fmt.Sprintf(format, args...)}
}

// Forbidden creates a KindAuthorization error.
func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches an operation name to err while keeping its kind.
// A nil err returns nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return &Error{Kind: ae.Kind, Op: op, Message: ae.Message, Fields: ae.Fields, Err: ae.Err}
	}
	return &Error{Kind: KindUnclassified, Op: op, Message: "unexpected failure", Err: err}
}

// KindOf returns the kind carried by err or any error it wraps.
// A nil error returns KindUnclassified.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnclassified
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusCode maps a kind to an HTTP status code.
func StatusCode(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindOperation:
		return http.StatusConflict
	case KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
