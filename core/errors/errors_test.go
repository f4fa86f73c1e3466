package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestOperationFailedErrorMatching(t *testing.T) {
	cause := stderrors.New("execution reverted")
	err := fmt.Errorf("add storefront: %w", &OperationFailedError{Method: "addStorefront", Err: cause})
	if !stderrors.Is(err, ErrOperationFailed) {
		t.Fatalf("expected ErrOperationFailed match")
	}
	if !stderrors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	var target *OperationFailedError
	if !stderrors.As(err, &target) || target.Method != "addStorefront" {
		t.Fatalf("unexpected target %+v", target)
	}
	if stderrors.Is(err, ErrInconsistentState) {
		t.Fatalf("operation failure must not match inconsistent state")
	}
}

func TestInconsistentStateErrorMessage(t *testing.T) {
	err := &InconsistentStateError{Method: "purchaseProduct", Event: "LogPurchaseProduct", Reason: "expected event missing", TxHash: "0x01"}
	want := "purchaseProduct: inconsistent state: event LogPurchaseProduct: expected event missing: tx 0x01"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !stderrors.Is(err, ErrInconsistentState) {
		t.Fatalf("expected ErrInconsistentState match")
	}
}
