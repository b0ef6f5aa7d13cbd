package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("trip_not_found")
	ErrInvalidInput    = errors.New("invalid_input")
	ErrInvalidState    = errors.New("invalid_state")
	ErrForbidden       = errors.New("forbidden")
	ErrDisputeOpen     = errors.New("dispute_open")
	ErrAttachmentLimit = errors.New("attachment_limit_reached")
)

// OutstandingBalanceError rejects an agent close while the trip still
// carries a balance.
type OutstandingBalanceError struct {
	Outstanding float64
}

func (e *OutstandingBalanceError) Error() string {
	return fmt.Sprintf("trip balance of %.2f is outstanding", e.Outstanding)
}

func (e *OutstandingBalanceError) Unwrap() error { return ErrInvalidState }

// InsufficientFundsError distinguishes "you owe X and your ledger cannot
// cover it" from a plain outstanding balance.
type InsufficientFundsError struct {
	Required  float64
	Available float64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("ledger balance %.2f cannot cover %.2f owed", e.Available, e.Required)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInvalidState }
