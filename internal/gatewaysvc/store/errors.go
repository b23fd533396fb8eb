package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Update when the key does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrTimeout is returned when a store call exceeds its deadline.
	ErrTimeout = errors.New("store call timed out")
	// ErrUnavailable wraps every other failure signalled by the store.
	ErrUnavailable = errors.New("store unavailable")
	// ErrPaginationLimit is returned when aggregating a paginated result
	// would exceed the configured page or item cap.
	ErrPaginationLimit = errors.New("pagination limit exceeded")
)

// StoreError carries the store's own error code alongside the sentinel used
// for classification.
type StoreError struct {
	Op    string
	Table string
	Code  string
	Kind  error
	Err   error
}

func (e *StoreError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s %s: %s (%s): %v", e.Op, e.Table, e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Table, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
