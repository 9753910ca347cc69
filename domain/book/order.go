package book

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

type Status uint8

const (
	Pending Status = iota
	PartiallyFilled
	Filled
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case PartiallyFilled:
		return "PARTIALLY_FILLED"
	case Filled:
		return "FILLED"
	case Cancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further fills or cancels are possible.
func (s Status) Terminal() bool {
	return s == Filled || s == Cancelled
}

// Order is a pure domain entity. While it rests, the book partition for
// its (pool, symbol) owns it exclusively; after it goes terminal it is
// read-only history.
type Order struct {
	ID       uint64
	ClientID string
	PoolID   string
	Symbol   string

	Side  Side
	Price decimal.Decimal
	Qty   decimal.Decimal

	// MinFill is the smallest acceptable single fill. Zero disables it.
	MinFill decimal.Decimal

	// Iceberg orders expose only DisplayQty in status queries; the full
	// remaining quantity still participates in matching.
	Iceberg    bool
	DisplayQty decimal.Decimal

	Filled decimal.Decimal
	Status Status

	SeqID     uint64
	CreatedAt time.Time
	UpdatedAt time.Time

	next *Order
	prev *Order
}

func (o *Order) Remaining() decimal.Decimal {
	return o.Qty.Sub(o.Filled)
}

// VisibleRemaining is what status queries may expose. For an iceberg
// order this is capped at the display size.
func (o *Order) VisibleRemaining() decimal.Decimal {
	rem := o.Remaining()
	if o.Iceberg && rem.GreaterThan(o.DisplayQty) {
		return o.DisplayQty
	}
	return rem
}

// Notional is quantity times limit price.
func (o *Order) Notional() decimal.Decimal {
	return o.Qty.Mul(o.Price)
}

// RemainingNotional is the monetary size still resting in a book.
func (o *Order) RemainingNotional() decimal.Decimal {
	return o.Remaining().Mul(o.Price)
}

// applyFill consumes qty from the order. A fill exceeding the remaining
// quantity is a logic bug, never an input error.
func (o *Order) applyFill(qty decimal.Decimal, at time.Time) {
	o.Filled = o.Filled.Add(qty)
	if o.Filled.GreaterThan(o.Qty) {
		panic(fmt.Sprintf(
			"book: order %d overfilled: filled=%s requested=%s",
			o.ID, o.Filled, o.Qty,
		))
	}
	o.UpdatedAt = at
	if o.Remaining().IsZero() {
		o.Status = Filled
	} else {
		o.Status = PartiallyFilled
	}
}

// Read-only traversal helper.
func (o *Order) Next() *Order {
	return o.next
}
