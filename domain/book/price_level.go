package book

import "github.com/shopspring/decimal"

// PriceLevel is a FIFO queue of resting orders at a single price.
// Time priority within a level is arrival order.
type PriceLevel struct {
	Price decimal.Decimal

	head *Order
	tail *Order

	TotalQty   decimal.Decimal
	OrderCount int
}

func (p *PriceLevel) Enqueue(o *Order) {
	if p.head == nil {
		p.head = o
		p.tail = o
	} else {
		p.tail.next = o
		o.prev = p.tail
		p.tail = o
	}
	p.TotalQty = p.TotalQty.Add(o.Remaining())
	p.OrderCount++
}

// Unlink removes an order from anywhere in the level.
func (p *PriceLevel) Unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		p.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		p.tail = o.prev
	}
	o.next = nil
	o.prev = nil

	p.TotalQty = p.TotalQty.Sub(o.Remaining())
	p.OrderCount--
}

// Reduce accounts for a partial fill of a resting order without
// unlinking it.
func (p *PriceLevel) Reduce(qty decimal.Decimal) {
	p.TotalQty = p.TotalQty.Sub(qty)
}

func (p *PriceLevel) Empty() bool {
	return p.head == nil
}

// Read-only helper.
func (p *PriceLevel) Head() *Order {
	return p.head
}
