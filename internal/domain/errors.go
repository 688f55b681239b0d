package domain

import (
	"fmt"
	"time"
)

// Error types shared by the engines, services and adapters. Handlers map
// them to HTTP status codes with errors.As.

// ErrNotFound indicates a referenced transaction, category, rule or document is absent.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure fetching from the accounting provider.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrRateLimited indicates the provider rejected the call with 429.
type ErrRateLimited struct {
	Service    string
	RetryAfter time.Duration
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("rate limited by %s, retry after %s", e.Service, e.RetryAfter)
}

// ErrValidation indicates malformed input, rejected before any mutation.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrAlreadyReconciled indicates a double-reconciliation attempt.
type ErrAlreadyReconciled struct {
	TransactionID string
}

func (e *ErrAlreadyReconciled) Error() string {
	return fmt.Sprintf("transaction already reconciled: %s", e.TransactionID)
}

// ErrUnauthorized indicates an invalid token or API key.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
