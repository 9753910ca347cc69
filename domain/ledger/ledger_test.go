package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAppendAndLookup(t *testing.T) {
	l := New()
	now := time.Now()

	l.Append(&Execution{
		ID: 10, TakerOrderID: 1, MakerOrderID: 2,
		Qty: dec("5"), Price: dec("100"),
		MakerFee: dec("0.5"), TakerFee: dec("1"),
		ExecutedAt: now,
	})
	l.Append(&Execution{
		ID: 11, TakerOrderID: 1, MakerOrderID: 3,
		Qty: dec("3"), Price: dec("99"),
		MakerFee: dec("0.3"), TakerFee: dec("0.6"),
		ExecutedAt: now,
	})

	if l.Count() != 2 {
		t.Fatalf("count %d, want 2", l.Count())
	}
	if got := len(l.ByOrder(1)); got != 2 {
		t.Errorf("taker should see 2 executions, got %d", got)
	}
	if got := len(l.ByOrder(2)); got != 1 {
		t.Errorf("maker 2 should see 1 execution, got %d", got)
	}
	if !l.FilledQty(1).Equal(dec("8")) {
		t.Errorf("taker filled qty %s, want 8", l.FilledQty(1))
	}
}

func TestFeesBySide(t *testing.T) {
	l := New()
	l.Append(&Execution{
		ID: 1, TakerOrderID: 7, MakerOrderID: 8,
		Qty: dec("10"), Price: dec("50"),
		MakerFee: dec("0.25"), TakerFee: dec("0.75"),
	})

	if !l.Fees(7).Equal(dec("0.75")) {
		t.Errorf("taker owes the taker fee, got %s", l.Fees(7))
	}
	if !l.Fees(8).Equal(dec("0.25")) {
		t.Errorf("maker owes the maker fee, got %s", l.Fees(8))
	}
	if !l.Fees(9).IsZero() {
		t.Errorf("stranger owes nothing, got %s", l.Fees(9))
	}
}

func TestByOrderReturnsCopy(t *testing.T) {
	l := New()
	l.Append(&Execution{ID: 1, TakerOrderID: 5, MakerOrderID: 6, Qty: dec("1"), Price: dec("10")})

	execs := l.ByOrder(5)
	execs[0] = nil
	if l.ByOrder(5)[0] == nil {
		t.Error("mutating the returned slice must not affect the ledger")
	}
}
