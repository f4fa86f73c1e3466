package observability

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"marketfront/core/events"
)

func TestContractMetricsCountsOutcomes(t *testing.T) {
	m := Contract()
	before := testutil.ToFloat64(m.calls.WithLabelValues("addProduct", "ok"))
	m.ObserveCall("addProduct", "ok", 25*time.Millisecond)
	m.ObserveCall("addProduct", "failed", time.Millisecond)
	if got := testutil.ToFloat64(m.calls.WithLabelValues("addProduct", "ok")); got != before+1 {
		t.Fatalf("ok count = %v, want %v", got, before+1)
	}
	if Contract() != m {
		t.Fatalf("expected a single registry")
	}
}

func TestCommandMetricsNormalisesLabels(t *testing.T) {
	m := Commands()
	before := testutil.ToFloat64(m.commands.WithLabelValues("unknown", "ok"))
	m.ObserveCommand("  ", "ok", time.Millisecond)
	if got := testutil.ToFloat64(m.commands.WithLabelValues("unknown", "ok")); got != before+1 {
		t.Fatalf("unknown count = %v", got)
	}
	m.SetStateVersion(7)
	if got := testutil.ToFloat64(m.version); got != 7 {
		t.Fatalf("version gauge = %v", got)
	}
}

func TestEventsCountsByType(t *testing.T) {
	m := Events()
	before := testutil.ToFloat64(m.confirmed.WithLabelValues(events.TypeProductAdded))
	var emitter events.Emitter = m
	emitter.Emit(events.ProductAdded{Name: "lamp", Price: big.NewInt(1), Quantity: big.NewInt(2)})
	emitter.Emit(events.UserDeleted{Addr: common.HexToAddress("0x01")})
	if got := testutil.ToFloat64(m.confirmed.WithLabelValues(events.TypeProductAdded)); got != before+1 {
		t.Fatalf("product added count = %v", got)
	}
}
