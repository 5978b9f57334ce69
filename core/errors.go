package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds as they appear on the wire.
const (
	KindValidation = "validation_error"
	KindNotFound   = "not_found"
	KindConflict   = "conflict"
	KindInternal   = "internal_error"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"reason"`
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	if len(err.Fields) > 0 {
		return err.Fields[0].Field + ": " + err.Fields[0].Error
	}
	return "invalid input"
}

// NotFoundError reports a referenced object (course, section, activity...) that does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func NewNotFoundError(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

func (err NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", err.Kind, err.ID)
}

// ConflictError reports a resource that could not be acquired in time; callers should retry with backoff.
type ConflictError struct {
	Resource string
	ID       string
	Err      error
}

func NewConflictError(resource, id string, err error) error {
	return &ConflictError{Resource: resource, ID: id, Err: err}
}

func (err ConflictError) Error() string {
	msg := fmt.Sprintf("%s %q is busy, retry later", err.Resource, err.ID)
	if err.Err != nil {
		msg += ": " + err.Err.Error()
	}
	return msg
}

// ErrorKind classifies err into one of the wire error kinds.
func ErrorKind(err error) string {
	switch errors.Cause(err).(type) {
	case *ValidationError:
		return KindValidation
	case *NotFoundError:
		return KindNotFound
	case *ConflictError:
		return KindConflict
	default:
		return KindInternal
	}
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
