// Package ledger is the append-only execution recorder. Executions are
// immutable once appended; cancelling an order never touches them.
package ledger

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Execution is one fill between a taker and a maker order.
type Execution struct {
	ID     uint64
	PoolID string
	Symbol string

	TakerOrderID uint64
	MakerOrderID uint64

	Qty   decimal.Decimal
	Price decimal.Decimal

	MakerFee decimal.Decimal
	TakerFee decimal.Decimal

	ExecutedAt time.Time
}

// Notional is the executed monetary size.
func (e *Execution) Notional() decimal.Decimal {
	return e.Qty.Mul(e.Price)
}

type Ledger struct {
	mu      sync.RWMutex
	all     []*Execution
	byOrder map[uint64][]*Execution
}

func New() *Ledger {
	return &Ledger{byOrder: make(map[uint64][]*Execution)}
}

func (l *Ledger) Append(e *Execution) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.all = append(l.all, e)
	l.byOrder[e.TakerOrderID] = append(l.byOrder[e.TakerOrderID], e)
	l.byOrder[e.MakerOrderID] = append(l.byOrder[e.MakerOrderID], e)
}

// ByOrder returns every execution the order participated in, as taker
// or maker, in append order.
func (l *Ledger) ByOrder(orderID uint64) []*Execution {
	l.mu.RLock()
	defer l.mu.RUnlock()
	src := l.byOrder[orderID]
	out := make([]*Execution, len(src))
	copy(out, src)
	return out
}

// FilledQty sums executed quantity for an order across all its fills.
func (l *Ledger) FilledQty(orderID uint64) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := decimal.Zero
	for _, e := range l.byOrder[orderID] {
		total = total.Add(e.Qty)
	}
	return total
}

// Fees returns the order's accumulated fee obligation: taker fees where
// it took, maker fees where it made.
func (l *Ledger) Fees(orderID uint64) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := decimal.Zero
	for _, e := range l.byOrder[orderID] {
		if e.TakerOrderID == orderID {
			total = total.Add(e.TakerFee)
		}
		if e.MakerOrderID == orderID {
			total = total.Add(e.MakerFee)
		}
	}
	return total
}

func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.all)
}
