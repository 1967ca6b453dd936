// Package apperr classifies the failures of the address book operations so that callers can
// tell a bad submission from a missing record, a lost update race, a failed upload or transport
// call, and everything else.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind is the class of a failure.
type Kind int

const (
	// Fatal is any failure that is not classified otherwise, typically an unexpected database
	// error. It must be propagated.
	Fatal Kind = iota
	// Validation marks bad or missing input. Nothing was written.
	Validation
	// NotFound marks an id that does not exist or that belongs to another owner.
	NotFound
	// Conflict marks an update that was based on a stale version of the record.
	Conflict
	// IO marks an upload that could not be read or a mail transport failure.
	IO
	// Association marks a record that was saved while its category links could not be updated.
	Association
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not found"
	case Conflict:
		return "conflict"
	case IO:
		return "io"
	case Association:
		return "association"
	default:
		return "fatal"
	}
}

// Error is a classified failure. Fields is only populated for Validation errors and maps the
// offending field name to a human readable message.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if len(e.Fields) > 0 {
		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(names, ", "))
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// ValidationFields builds a Validation error from field level messages.
func ValidationFields(fields map[string]string) *Error {
	return &Error{Kind: Validation, Message: "invalid input", Fields: fields}
}

// Invalid builds a Validation error for a single field.
func Invalid(field string, message string) *Error {
	return ValidationFields(map[string]string{field: message})
}

// NotFoundf builds a NotFound error.
func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: NotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds a Conflict error.
func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: Conflict, Message: fmt.Sprintf(format, args...)}
}

// IOError wraps a failed read or send.
func IOError(message string, err error) *Error {
	return &Error{Kind: IO, Message: message, Err: err}
}

// AssociationError wraps a failure to update category links of a record that was saved.
func AssociationError(err error) *Error {
	return &Error{Kind: Association, Message: "category links not updated", Err: err}
}

// FatalError wraps an unexpected failure.
func FatalError(err error) *Error {
	return &Error{Kind: Fatal, Message: "internal error", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain. Unclassified errors are Fatal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Fatal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FieldsOf returns the field messages of a Validation error, or nil.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
