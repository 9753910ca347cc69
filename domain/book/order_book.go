package book

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill is one match between an incoming taker order and a resting maker.
// The price is always the maker's quoted price: the order that arrived
// first keeps its price.
type Fill struct {
	Maker *Order
	Qty   decimal.Decimal
	Price decimal.Decimal
}

// OrderBook holds the resting orders for one (pool, symbol) pair.
// It is single-writer: the engine shard that owns it serializes all
// access.
type OrderBook struct {
	PoolID string
	Symbol string

	Bids *LevelTree
	Asks *LevelTree
}

func NewOrderBook(poolID, symbol string) *OrderBook {
	return &OrderBook{
		PoolID: poolID,
		Symbol: symbol,
		Bids:   NewLevelTree(),
		Asks:   NewLevelTree(),
	}
}

// Match fills the incoming order against the opposite side under
// price-time priority and returns the fills in execution order. The
// incoming order is NOT rested; callers decide that based on Remaining.
//
// Minimum-fill is applied per candidate: a maker whose available
// quantity would produce a fill below o.MinFill is skipped, not the
// whole pass.
func (b *OrderBook) Match(o *Order, now time.Time) []Fill {
	var fills []Fill

	for _, lvl := range b.compatibleLevels(o) {
		var next *Order
		for maker := lvl.head; maker != nil; maker = next {
			next = maker.next

			qty := decimal.Min(o.Remaining(), maker.Remaining())
			if o.MinFill.IsPositive() && qty.LessThan(o.MinFill) {
				continue
			}

			lvl.Reduce(qty)
			maker.applyFill(qty, now)
			o.applyFill(qty, now)

			fills = append(fills, Fill{
				Maker: maker,
				Qty:   qty,
				Price: maker.Price,
			})

			if maker.Status == Filled {
				lvl.Unlink(maker)
			}
			if o.Remaining().IsZero() {
				break
			}
		}

		if lvl.Empty() {
			b.opposite(o.Side).Delete(lvl.Price)
		}
		if o.Remaining().IsZero() {
			break
		}
	}

	return fills
}

// Rest inserts the unfilled remainder of an order into its side of the
// book. Terminal orders must never be rested.
func (b *OrderBook) Rest(o *Order) {
	b.side(o.Side).GetOrCreate(o.Price).Enqueue(o)
}

// Remove unlinks a resting order, dropping its level if it empties.
// Returns false when the order is not in this book.
func (b *OrderBook) Remove(o *Order) bool {
	tree := b.side(o.Side)
	lvl := tree.Find(o.Price)
	if lvl == nil {
		return false
	}
	for n := lvl.head; n != nil; n = n.next {
		if n == o {
			lvl.Unlink(o)
			if lvl.Empty() {
				tree.Delete(lvl.Price)
			}
			return true
		}
	}
	return false
}

// compatibleLevels collects opposite-side levels the order may trade
// with, best price for the taker first. Collecting before filling keeps
// level deletion out of the tree walk.
func (b *OrderBook) compatibleLevels(o *Order) []*PriceLevel {
	var levels []*PriceLevel
	if o.Side == Buy {
		b.Asks.ForEachAscending(func(lvl *PriceLevel) bool {
			if lvl.Price.GreaterThan(o.Price) {
				return false
			}
			levels = append(levels, lvl)
			return true
		})
	} else {
		b.Bids.ForEachDescending(func(lvl *PriceLevel) bool {
			if lvl.Price.LessThan(o.Price) {
				return false
			}
			levels = append(levels, lvl)
			return true
		})
	}
	return levels
}

func (b *OrderBook) side(s Side) *LevelTree {
	if s == Buy {
		return b.Bids
	}
	return b.Asks
}

func (b *OrderBook) opposite(s Side) *LevelTree {
	return b.side(s.Opposite())
}

// ---- read-only queries ----

func (b *OrderBook) ActiveOrders() int {
	count := 0
	walk := func(lvl *PriceLevel) bool {
		count += lvl.OrderCount
		return true
	}
	b.Bids.ForEachDescending(walk)
	b.Asks.ForEachAscending(walk)
	return count
}

// Depth is the number of populated price levels on both sides.
func (b *OrderBook) Depth() int {
	return b.Bids.Size() + b.Asks.Size()
}

// SideDepth is the number of populated levels the given side could
// trade against.
func (b *OrderBook) SideDepth(s Side) int {
	return b.opposite(s).Size()
}

// RestingNotional sums remaining quantity times price over all resting
// orders. Used for the pool capacity invariant.
func (b *OrderBook) RestingNotional() decimal.Decimal {
	total := decimal.Zero
	walk := func(lvl *PriceLevel) bool {
		for o := lvl.head; o != nil; o = o.next {
			total = total.Add(o.RemainingNotional())
		}
		return true
	}
	b.Bids.ForEachDescending(walk)
	b.Asks.ForEachAscending(walk)
	return total
}

// WalkResting visits every resting order, bids best-first then asks
// best-first. Callers must treat the orders as read-only.
func (b *OrderBook) WalkResting(visit func(*Order)) {
	walk := func(lvl *PriceLevel) bool {
		for o := lvl.head; o != nil; o = o.next {
			visit(o)
		}
		return true
	}
	b.Bids.ForEachDescending(walk)
	b.Asks.ForEachAscending(walk)
}
