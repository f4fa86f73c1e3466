package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidContentID reports a malformed or wrong-length content identifier.
	ErrInvalidContentID = stderrors.New("contentid: invalid content identifier")
	// ErrOperationFailed matches every OperationFailedError via errors.Is.
	ErrOperationFailed = stderrors.New("market: operation failed")
	// ErrInconsistentState matches every InconsistentStateError via errors.Is.
	ErrInconsistentState = stderrors.New("market: inconsistent state")
	// ErrUnconfirmed matches every UnconfirmedError via errors.Is.
	ErrUnconfirmed = stderrors.New("market: outcome unconfirmed")
)

// OperationFailedError is returned when the ledger rejects a state-changing
// request. No local state has been mutated when this error is observed.
type OperationFailedError struct {
	Method string
	Err    error
}

func (e *OperationFailedError) Error() string {
	if e == nil {
		return ErrOperationFailed.Error()
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: operation failed", e.Method)
	}
	return fmt.Sprintf("%s: operation failed: %v", e.Method, e.Err)
}

func (e *OperationFailedError) Unwrap() error { return e.Err }

// Is allows errors.Is(err, ErrOperationFailed).
func (e *OperationFailedError) Is(target error) bool { return target == ErrOperationFailed }

// InconsistentStateError is returned when a request succeeded on the ledger but
// the confirmation needed to reconcile local state was missing or did not fit
// the cached collections. Local state is left untouched.
type InconsistentStateError struct {
	Method string
	Event  string
	TxHash string
	Reason string
}

func (e *InconsistentStateError) Error() string {
	if e == nil {
		return ErrInconsistentState.Error()
	}
	parts := []string{e.Method + ": inconsistent state"}
	if e.Event != "" {
		parts = append(parts, "event "+e.Event)
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	if e.TxHash != "" {
		parts = append(parts, "tx "+e.TxHash)
	}
	return strings.Join(parts, ": ")
}

// Is allows errors.Is(err, ErrInconsistentState).
func (e *InconsistentStateError) Is(target error) bool { return target == ErrInconsistentState }

// UnconfirmedError is returned when a request was sent but its outcome was
// never observed. The ledger may still apply it, so the cached state is left
// untouched and must be reloaded rather than the request repeated.
type UnconfirmedError struct {
	Method string
	TxHash string
	Err    error
}

func (e *UnconfirmedError) Error() string {
	if e == nil {
		return ErrUnconfirmed.Error()
	}
	return fmt.Sprintf("%s: outcome unconfirmed for tx %s: %v", e.Method, e.TxHash, e.Err)
}

func (e *UnconfirmedError) Unwrap() error { return e.Err }

// Is allows errors.Is(err, ErrUnconfirmed).
func (e *UnconfirmedError) Is(target error) bool { return target == ErrUnconfirmed }
