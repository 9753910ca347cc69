package service

import (
	"time"

	"github.com/shopspring/decimal"

	"umbra/domain/book"
	"umbra/domain/venue"
)

// OrderRequest is the raw client submission. Privacy and settlement
// arrive as strings and are narrowed to enums during validation.
type OrderRequest struct {
	ClientID string
	Symbol   string
	Side     book.Side
	Qty      decimal.Decimal
	Price    decimal.Decimal
	PoolID   string

	Privacy    string
	Settlement string

	MinFill    decimal.Decimal
	Iceberg    bool
	DisplayQty decimal.Decimal

	// MaxSlippageBps is advisory only; the engine never trades outside
	// the limit price regardless.
	MaxSlippageBps int
}

// draft is a request that passed validation, with enums parsed and the
// pool resolved.
type draft struct {
	pool       *venue.Pool
	privacy    venue.PrivacyLevel
	settlement venue.SettlementType
	notional   decimal.Decimal
}

// OrderAcceptance is returned from a successful submission.
type OrderAcceptance struct {
	OrderID       uint64
	Status        book.Status
	EstimatedFill time.Duration
}

// OrderView is a read-only copy of an order's externally visible state.
// For iceberg orders Remaining is capped at the display size.
type OrderView struct {
	ID        uint64
	ClientID  string
	PoolID    string
	Symbol    string
	Side      book.Side
	Price     decimal.Decimal
	Qty       decimal.Decimal
	Filled    decimal.Decimal
	Remaining decimal.Decimal
	Status    book.Status
	Iceberg   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func viewOf(o *book.Order) *OrderView {
	return &OrderView{
		ID:        o.ID,
		ClientID:  o.ClientID,
		PoolID:    o.PoolID,
		Symbol:    o.Symbol,
		Side:      o.Side,
		Price:     o.Price,
		Qty:       o.Qty,
		Filled:    o.Filled,
		Remaining: o.VisibleRemaining(),
		Status:    o.Status,
		Iceberg:   o.Iceberg,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

// PoolStatus is the snapshot returned by GetPoolStatus.
type PoolStatus struct {
	PoolID           string
	Name             string
	ActiveOrders     int
	BookDepth        int
	RestingNotional  decimal.Decimal
	Capacity         decimal.Decimal
	ParticipantCount int
}
