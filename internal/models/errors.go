package models

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError through errors.Is.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced group, member or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConcurrencyConflict means another writer changed the edge; retry with a fresh read.
	ErrConcurrencyConflict = errors.New("concurrent modification")

	// ErrInvariantViolation means both directions of an edge were found.
	ErrInvariantViolation = errors.New("ledger invariant violated")

	// ErrOutstandingBalance blocks removing a member who still owes or is owed money.
	ErrOutstandingBalance = errors.New("member has outstanding balances")
)

// ValidationReason classifies a rejected input.
type ValidationReason string

const (
	ReasonSplitMismatch      ValidationReason = "SplitMismatch"
	ReasonPercentageMismatch ValidationReason = "PercentageMismatch"
	ReasonNonPositiveAmount  ValidationReason = "NonPositiveAmount"
	ReasonMissingField       ValidationReason = "MissingField"
	ReasonDuplicateMember    ValidationReason = "DuplicateMember"
	ReasonSelfSettlement     ValidationReason = "SelfSettlement"
	ReasonUnknownPolicy      ValidationReason = "UnknownPolicy"
	ReasonMalformedAmount    ValidationReason = "MalformedAmount"
)

// ValidationError rejects an operation before any state changes.
type ValidationError struct {
	Reason ValidationReason
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("validation error (%s)", e.Reason)
	}
	return fmt.Sprintf("validation error (%s): %s", e.Reason, e.Detail)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError with a formatted detail.
func Invalid(reason ValidationReason, format string, args ...any) error {
	return &ValidationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// ReasonOf returns the validation reason carried by err, or "" when err is not a validation error.
func ReasonOf(err error) ValidationReason {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return ""
}
