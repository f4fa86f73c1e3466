package session

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	coreerrors "marketfront/core/errors"
	"marketfront/core/types"
)

func inconsistent(method, event, reason string, args ...any) error {
	return &coreerrors.InconsistentStateError{Method: method, Event: event, Reason: fmt.Sprintf(reason, args...)}
}

// reconcileFailed wraps a reconciliation error as an inconsistency: the
// ledger accepted the change but the cached collections cannot absorb it.
func reconcileFailed(method, event string, err error) error {
	return &coreerrors.InconsistentStateError{Method: method, Event: event, Reason: err.Error()}
}

func intOf(v *big.Int) (int, bool) {
	if v == nil || v.Sign() < 0 || !v.IsInt64() {
		return 0, false
	}
	n := v.Int64()
	if int64(int(n)) != n {
		return 0, false
	}
	return int(n), true
}

func uint64Of(v *big.Int) (uint64, bool) {
	if v == nil || v.Sign() < 0 || !v.IsUint64() {
		return 0, false
	}
	return v.Uint64(), true
}

func amountOf(v *big.Int) (*uint256.Int, bool) {
	amount, err := types.AmountFromBig(v)
	if err != nil {
		return nil, false
	}
	return amount, true
}
