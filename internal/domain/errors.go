package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrActiveRequestExists is returned when a transaction already has an
// allocation request in a non-terminal state.
var ErrActiveRequestExists = errors.New("transaction already has an active allocation request")

// ErrAlreadyResolved is returned when applying a resolution to a
// transaction that already carries a policy number.
var ErrAlreadyResolved = errors.New("transaction already has a policy number")

// ValidationError reports one malformed input row or field. In batch
// contexts these are accumulated per row, never aborting the whole batch.
type ValidationError struct {
	Line    int
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InvalidTransitionError reports a workflow transition not permitted from
// the record's current state. The record is left unchanged.
type InvalidTransitionError struct {
	RequestID string
	From      AllocationStatus
	To        AllocationStatus
	Reason    string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid transition %s -> %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// ConcurrentModificationError reports a failed optimistic-concurrency
// check: another writer transitioned the record between our read and
// write. The caller should refetch and retry.
type ConcurrentModificationError struct {
	RequestID string
	Expected  AllocationStatus
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("request %s no longer in status %s", e.RequestID, e.Expected)
}

// DependencyUnavailableError reports an unreachable backing store. Fatal
// for the current call, retryable by the caller.
type DependencyUnavailableError struct {
	Dependency string
	Err        error
}

func (e *DependencyUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Dependency, e.Err)
}

func (e *DependencyUnavailableError) Unwrap() error {
	return e.Err
}
