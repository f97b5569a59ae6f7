package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrValidation covers malformed or missing request fields.
	ErrValidation = errors.New("validation error")

	// ErrNotFound covers referenced orders, work items, users and task
	// entries that do not exist.
	ErrNotFound = errors.New("not found")

	ErrEmployeeNotFound      = errors.New("employee not found")
	ErrInvalidEmployeeFormat = errors.New(`employee must be given as "Name (PersonnelNumber)"`)

	// ErrDuplicateKey signals an explicit pre-insert uniqueness check
	// failing, not a storage-level constraint violation.
	ErrDuplicateKey = errors.New("already exists")

	// ErrStorageUnavailable wraps driver/connectivity failures. It is
	// surfaced to callers as a retryable condition; the service itself
	// never retries.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// CapacityExceededError rejects a submission that would push an employee past
// the daily hour capacity. Free carries the remaining allowance so the caller
// can surface it to the end user.
type CapacityExceededError struct {
	Free decimal.Decimal
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("daily capacity exceeded: %s hours free", e.Free.StringFixed(2))
}
