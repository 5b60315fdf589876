package graphdb

import "github.com/adaworld/graphdb/internal/gerr"

// The error taxonomy lives in internal/gerr so pipeline packages can
// construct errors without importing this package back. These aliases
// are the public surface: callers type-assert against *graphdb.Error
// and compare Kind to the Err* constants.

type (
	Error     = gerr.Error
	ErrorKind = gerr.ErrorKind
)

const (
	ErrSyntax              = gerr.ErrSyntax
	ErrPlan                = gerr.ErrPlan
	ErrType                = gerr.ErrType
	ErrParamMissing        = gerr.ErrParamMissing
	ErrNotFound            = gerr.ErrNotFound
	ErrConstraintViolation = gerr.ErrConstraintViolation
	ErrExecution           = gerr.ErrExecution
	ErrStorage             = gerr.ErrStorage
	ErrIO                  = gerr.ErrIO
)

func NewSyntaxError(position int, message string) *Error {
	return gerr.NewSyntaxError(position, message)
}

func NewPlanError(message string) *Error { return gerr.NewPlanError(message) }

func NewTypeError(expected, got string) *Error { return gerr.NewTypeError(expected, got) }

func NewParamMissing(name string) *Error { return gerr.NewParamMissing(name) }

func NewNotFound(what string) *Error { return gerr.NewNotFound(what) }

func NewConstraintViolation(message string) *Error { return gerr.NewConstraintViolation(message) }

func NewExecutionError(message string) *Error { return gerr.NewExecutionError(message) }

func NewStorageError(message string) *Error { return gerr.NewStorageError(message) }

func NewIOError(message string) *Error { return gerr.NewIOError(message) }
