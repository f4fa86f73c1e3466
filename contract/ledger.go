package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TxOpts describes the sender of a state-changing request.
type TxOpts struct {
	From  common.Address
	Value *big.Int
}

// RawEvent is a decoded log: the event name and its arguments keyed by ABI
// argument name.
type RawEvent struct {
	Name   string
	Fields map[string]any
}

// Receipt is the outcome of a confirmed, non-reverted request. DecodeErr is
// set when the request was mined but its logs could not be decoded; Events
// then holds only the logs decoded before the failure.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Events      []RawEvent
	DecodeErr   error
}

// Find returns the first event with the given name.
func (r *Receipt) Find(name string) (RawEvent, bool) {
	if r == nil {
		return RawEvent{}, false
	}
	for _, evt := range r.Events {
		if evt.Name == name {
			return evt, true
		}
	}
	return RawEvent{}, false
}

// Ledger is the call surface the gateway needs from the marketplace contract.
// Transact returns an error when the request was rejected (the send failed or
// the transaction reverted) or, as a *PendingError, when it was sent but no
// receipt could be obtained.
type Ledger interface {
	Call(ctx context.Context, from common.Address, method string, args ...any) ([]any, error)
	Transact(ctx context.Context, opts TxOpts, method string, args ...any) (*Receipt, error)
}

// ErrPending matches every PendingError via errors.Is.
var ErrPending = errors.New("contract: transaction outcome unknown")

// PendingError reports a transaction that was sent but whose receipt was not
// observed, so the ledger may still apply it.
type PendingError struct {
	TxHash common.Hash
	Err    error
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("contract: tx %s sent but not confirmed: %v", e.TxHash.Hex(), e.Err)
}

func (e *PendingError) Unwrap() error { return e.Err }

// Is allows errors.Is(err, ErrPending).
func (e *PendingError) Is(target error) bool { return target == ErrPending }
