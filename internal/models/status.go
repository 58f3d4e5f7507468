package models

import (
	"errors"
	"fmt"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusRejected  TransactionStatus = "rejected"
)

var (
	ErrTerminalStatus    = errors.New("transaction already processed")
	ErrInvalidTransition = errors.New("invalid status transition")
)

func (s TransactionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// Transition is the only place that knows which status moves are legal:
// pending may become completed or rejected, nothing leaves a terminal status.
func (s TransactionStatus) Transition(to TransactionStatus) error {
	if s.IsTerminal() {
		return fmt.Errorf("%w (status: %s)", ErrTerminalStatus, s)
	}
	if s != StatusPending || !to.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
	}
	return nil
}
