package types

import (
	"errors"
	"fmt"
)

// ErrorClass buckets trade-attempt failures for the ledger and for
// operator triage.
type ErrorClass string

const (
	// ErrClassValidation covers security-gate failures. Fail-closed:
	// any validator error blocks entry and is recorded.
	ErrClassValidation ErrorClass = "VALIDATION_FAILURE"

	// ErrClassUpstreamTransient covers timeouts and 5xx responses from
	// external services. Recorded as FAILED, never retried within the
	// same attempt.
	ErrClassUpstreamTransient ErrorClass = "UPSTREAM_TRANSIENT"

	// ErrClassProtocolViolation covers malformed responses and schema
	// mismatches. Non-retryable for the attempt.
	ErrClassProtocolViolation ErrorClass = "PROTOCOL_VIOLATION"

	// ErrClassPersistence covers ledger I/O errors. Fatal to the current
	// operation; always propagated.
	ErrClassPersistence ErrorClass = "PERSISTENCE_FAILURE"

	// ErrClassAmbiguousOutcome marks a confirmation timeout after
	// submission: funds may or may not have moved, the record carries
	// the signature for manual reconciliation.
	ErrClassAmbiguousOutcome ErrorClass = "AMBIGUOUS_OUTCOME"
)

// TradeError is a classified failure of a trade attempt.
type TradeError struct {
	Class   ErrorClass
	Stage   string // protocol stage where the failure occurred, if any
	Message string
	Err     error
}

func (e *TradeError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s at %s: %s", e.Class, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

func (e *TradeError) Unwrap() error {
	return e.Err
}

// NewTradeError builds a classified trade error wrapping cause.
func NewTradeError(class ErrorClass, stage, message string, cause error) *TradeError {
	return &TradeError{Class: class, Stage: stage, Message: message, Err: cause}
}

// ClassOf extracts the error class from err, or empty when err carries no
// classification.
func ClassOf(err error) ErrorClass {
	var te *TradeError
	if errors.As(err, &te) {
		return te.Class
	}
	return ""
}
