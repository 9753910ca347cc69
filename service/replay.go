package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"umbra/domain/book"
	"umbra/domain/ledger"
	"umbra/infra/wal/entry"
)

// WAL payloads. The submit record's seq doubles as the order id, so the
// payload only carries what the request did.
type walSubmit struct {
	ClientID   string          `json:"client_id"`
	PoolID     string          `json:"pool_id"`
	Symbol     string          `json:"symbol"`
	Side       uint8           `json:"side"`
	Price      decimal.Decimal `json:"price"`
	Qty        decimal.Decimal `json:"qty"`
	MinFill    decimal.Decimal `json:"min_fill,omitempty"`
	Iceberg    bool            `json:"iceberg,omitempty"`
	DisplayQty decimal.Decimal `json:"display_qty,omitempty"`
}

type walCancel struct {
	OrderID  uint64 `json:"order_id"`
	ClientID string `json:"client_id"`
}

// execMessage is the wire form of an execution, shared by the exit WAL
// and the live feed.
type execMessage struct {
	ExecutionID  uint64          `json:"execution_id"`
	PoolID       string          `json:"pool_id"`
	Symbol       string          `json:"symbol"`
	TakerOrderID uint64          `json:"taker_order_id"`
	MakerOrderID uint64          `json:"maker_order_id"`
	Qty          decimal.Decimal `json:"qty"`
	Price        decimal.Decimal `json:"price"`
	MakerFee     decimal.Decimal `json:"maker_fee"`
	TakerFee     decimal.Decimal `json:"taker_fee"`
	ExecutedAt   int64           `json:"executed_at"`
}

func newExecMessage(e *ledger.Execution) execMessage {
	return execMessage{
		ExecutionID:  e.ID,
		PoolID:       e.PoolID,
		Symbol:       e.Symbol,
		TakerOrderID: e.TakerOrderID,
		MakerOrderID: e.MakerOrderID,
		Qty:          e.Qty,
		Price:        e.Price,
		MakerFee:     e.MakerFee,
		TakerFee:     e.TakerFee,
		ExecutedAt:   e.ExecutedAt.UnixNano(),
	}
}

// Replay rebuilds engine state from the entry WAL, skipping records at
// or below afterSeq (already covered by a restored snapshot). Matching
// is deterministic, so re-running each submit reproduces the original
// executions with the same ids.
func (s *OrderService) Replay(dir string, afterSeq uint64) (uint64, error) {
	s.durable = false
	defer func() { s.durable = true }()

	lastSeq, err := entry.Replay(dir, func(rec *entry.Record) error {
		if rec.Seq <= afterSeq {
			return nil
		}
		switch rec.Type {
		case entry.RecordSubmit:
			return s.replaySubmit(rec)
		case entry.RecordCancel:
			return s.replayCancel(rec)
		default:
			return fmt.Errorf("replay: unknown record type %d at seq %d", rec.Type, rec.Seq)
		}
	})
	if err != nil {
		return lastSeq, err
	}

	if lastSeq > s.seq.Current() {
		s.seq.Reset(lastSeq)
	}
	s.log.Info("wal replay complete", "last_seq", lastSeq)
	return lastSeq, nil
}

func (s *OrderService) replaySubmit(rec *entry.Record) error {
	var p walSubmit
	if err := json.Unmarshal(rec.Data, &p); err != nil {
		return fmt.Errorf("replay: decode submit at seq %d: %w", rec.Seq, err)
	}

	pool, err := s.registry.Get(p.PoolID)
	if err != nil {
		return fmt.Errorf("replay: submit at seq %d: %w", rec.Seq, err)
	}

	at := time.Unix(0, rec.Time)
	o := &book.Order{
		ID:         rec.Seq,
		ClientID:   p.ClientID,
		PoolID:     p.PoolID,
		Symbol:     p.Symbol,
		Side:       book.Side(p.Side),
		Price:      p.Price,
		Qty:        p.Qty,
		MinFill:    p.MinFill,
		Iceberg:    p.Iceberg,
		DisplayQty: p.DisplayQty,
		Status:     book.Pending,
		SeqID:      rec.Seq,
		CreatedAt:  at,
		UpdatedAt:  at,
	}

	if err := s.reserveCapacity(pool, o.Notional()); err != nil {
		return fmt.Errorf("replay: submit at seq %d: %w", rec.Seq, err)
	}

	sh := s.shardFor(o.PoolID, o.Symbol)
	sh.mu.Lock()
	// Pin the sequencer so execution ids come out as they did live.
	s.seq.Reset(rec.Seq)
	s.executeLocked(sh, o, pool)
	sh.mu.Unlock()
	s.index(o, sh)
	return nil
}

func (s *OrderService) replayCancel(rec *entry.Record) error {
	var p walCancel
	if err := json.Unmarshal(rec.Data, &p); err != nil {
		return fmt.Errorf("replay: decode cancel at seq %d: %w", rec.Seq, err)
	}

	h := s.handleFor(p.OrderID)
	if h == nil {
		// The order went terminal before the snapshot that covers the
		// earlier part of the log. Nothing left to cancel.
		s.log.Warn("replay: cancel for unknown order", "seq", rec.Seq, "order_id", p.OrderID)
		return nil
	}

	h.shard.mu.Lock()
	defer h.shard.mu.Unlock()

	if h.order.Status.Terminal() {
		// The order was logged live before cancellation; if replayed
		// matching already filled it, the cancel is a no-op.
		return nil
	}

	s.seq.Reset(rec.Seq)
	s.cancelLocked(h.order, h.shard, time.Unix(0, rec.Time))
	return nil
}
