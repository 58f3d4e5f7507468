package service

import (
	"errors"
	"fmt"

	"github.com/Fi44er/roi_ledger/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTransientStorage  = errors.New("storage unavailable")
)

// LedgerError carries one of the sentinel kinds above plus the operation that
// failed. errors.Is matches both the kind and the wrapped cause.
type LedgerError struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

func (e *LedgerError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *LedgerError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func validationErr(op, format string, args ...any) error {
	return &LedgerError{Kind: ErrValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

func notFoundErr(op, what string, id uint) error {
	return &LedgerError{Kind: ErrNotFound, Op: op, Message: fmt.Sprintf("%s %d not found", what, id)}
}

func conflictErr(op, message string, err error) error {
	return &LedgerError{Kind: ErrConflict, Op: op, Message: message, Err: err}
}

func insufficientErr(op, message string) error {
	return &LedgerError{Kind: ErrInsufficientFunds, Op: op, Message: message}
}

// storageErr classifies a repository failure. Typed ledger errors pass
// through untouched.
func storageErr(op string, err error) error {
	var le *LedgerError
	switch {
	case errors.As(err, &le):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return conflictErr(op, "duplicate record", err)
	case errors.Is(err, repository.ErrAccountNotFound):
		return &LedgerError{Kind: ErrNotFound, Op: op, Message: "account not found", Err: err}
	default:
		return &LedgerError{Kind: ErrTransientStorage, Op: op, Err: err}
	}
}

// Kind names the category of err for logs, metrics and transport mapping.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrTransientStorage):
		return "transient"
	default:
		return "internal"
	}
}
