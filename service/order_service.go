package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"umbra/domain/book"
	"umbra/domain/ledger"
	"umbra/domain/venue"
	"umbra/infra/ring"
	"umbra/infra/sequence"
	"umbra/infra/wal/entry"
	"umbra/infra/wal/exit"
)

// shardKey identifies one independently locked matching partition.
type shardKey struct {
	poolID string
	symbol string
}

// shard owns the book for one (pool, symbol) pair. All matching for the
// pair is serialized on mu; different pairs never contend.
//
// Sequence ids are issued and WAL records appended inside the shard
// critical section. That ordering is what lets Capture take a clean
// boundary: any id at or below the boundary is fully applied once every
// shard lock has been acquired.
type shard struct {
	mu   sync.Mutex
	book *book.OrderBook
}

// orderHandle ties an order to the shard that owns it, so cancels and
// status queries can take the right lock.
type orderHandle struct {
	order *book.Order
	shard *shard
}

// Deps wires the service. EntryWAL, ExitWAL, Feed, Log, and Clock are
// optional; tests leave most of them nil.
type Deps struct {
	Registry  *venue.Registry
	Validator *Validator
	Ledger    *ledger.Ledger
	Seq       *sequence.Sequencer
	EntryWAL  *entry.WAL
	ExitWAL   *exit.WAL
	Feed      *ring.Buffer[*ledger.Execution]
	Log       *slog.Logger
	Clock     func() time.Time
}

// OrderService is the engine's in-process API. One instance serves all
// pools; concurrency is per (pool, symbol) shard.
type OrderService struct {
	registry  *venue.Registry
	validator *Validator
	ledger    *ledger.Ledger
	seq       *sequence.Sequencer
	entryWAL  *entry.WAL
	exitWAL   *exit.WAL
	feed      *ring.Buffer[*ledger.Execution]
	log       *slog.Logger
	now       func() time.Time

	// durable is cleared during WAL replay so re-applied commands do not
	// append to the log they are being read from.
	durable bool

	mu     sync.RWMutex
	shards map[shardKey]*shard
	orders map[uint64]*orderHandle

	usageMu   sync.Mutex
	poolUsage map[string]decimal.Decimal
}

func NewOrderService(d Deps) *OrderService {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &OrderService{
		registry:  d.Registry,
		validator: d.Validator,
		ledger:    d.Ledger,
		seq:       d.Seq,
		entryWAL:  d.EntryWAL,
		exitWAL:   d.ExitWAL,
		feed:      d.Feed,
		log:       d.Log,
		now:       d.Clock,
		durable:   true,
		shards:    make(map[shardKey]*shard),
		orders:    make(map[uint64]*orderHandle),
		poolUsage: make(map[string]decimal.Decimal),
	}
}

// SubmitOrder validates, logs, matches, and rests an order, returning
// the id and an estimated time to full fill. Validation failures report
// every violation at once; nothing is mutated on any error path.
func (s *OrderService) SubmitOrder(ctx context.Context, req OrderRequest) (*OrderAcceptance, error) {
	d, verr := s.validator.Validate(req)
	if verr != nil {
		return nil, verr
	}

	if err := s.reserveCapacity(d.pool, d.notional); err != nil {
		return nil, err
	}

	sh := s.shardFor(req.PoolID, req.Symbol)
	sh.mu.Lock()

	now := s.now()
	o := &book.Order{
		ID:         s.seq.Next(),
		ClientID:   req.ClientID,
		PoolID:     req.PoolID,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Price:      req.Price,
		Qty:        req.Qty,
		MinFill:    req.MinFill,
		Iceberg:    req.Iceberg,
		DisplayQty: req.DisplayQty,
		Status:     book.Pending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	o.SeqID = o.ID

	if err := s.journalSubmit(o); err != nil {
		sh.mu.Unlock()
		s.releaseCapacity(o.PoolID, d.notional)
		return nil, err
	}

	estimate := s.executeLocked(sh, o, d.pool)
	sh.mu.Unlock()

	// The id escapes only through the return value, so indexing after
	// the critical section cannot race a cancel for this order.
	s.index(o, sh)

	s.log.Info("order accepted",
		"order_id", o.ID,
		"pool", o.PoolID,
		"symbol", o.Symbol,
		"side", o.Side.String(),
		"status", o.Status.String(),
		"filled", o.Filled.String(),
	)

	return &OrderAcceptance{
		OrderID:       o.ID,
		Status:        o.Status,
		EstimatedFill: estimate,
	}, nil
}

func (s *OrderService) journalSubmit(o *book.Order) error {
	if !s.durable || s.entryWAL == nil {
		return nil
	}
	payload, err := json.Marshal(walSubmit{
		ClientID:   o.ClientID,
		PoolID:     o.PoolID,
		Symbol:     o.Symbol,
		Side:       uint8(o.Side),
		Price:      o.Price,
		Qty:        o.Qty,
		MinFill:    o.MinFill,
		Iceberg:    o.Iceberg,
		DisplayQty: o.DisplayQty,
	})
	if err != nil {
		return err
	}
	if err := s.entryWAL.Append(entry.NewRecord(entry.RecordSubmit, o.ID, o.CreatedAt, payload)); err != nil {
		return fmt.Errorf("append submit to wal: %w", err)
	}
	return nil
}

// executeLocked runs the matching pass. The caller holds sh.mu and has
// already reserved capacity for the order's full notional.
func (s *OrderService) executeLocked(sh *shard, o *book.Order, pool *venue.Pool) time.Duration {
	now := o.UpdatedAt
	fills := sh.book.Match(o, now)

	for _, f := range fills {
		notional := f.Qty.Mul(f.Price)
		exec := &ledger.Execution{
			ID:           s.seq.Next(),
			PoolID:       o.PoolID,
			Symbol:       o.Symbol,
			TakerOrderID: o.ID,
			MakerOrderID: f.Maker.ID,
			Qty:          f.Qty,
			Price:        f.Price,
			MakerFee:     notional.Mul(pool.Fees.Maker),
			TakerFee:     notional.Mul(pool.Fees.Taker),
			ExecutedAt:   now,
		}
		s.ledger.Append(exec)
		s.publishExecution(exec)

		// Makers rest at their own price; release exactly what was
		// reserved for the filled portion.
		s.releaseCapacity(o.PoolID, f.Qty.Mul(f.Maker.Price))
	}

	// The taker reserved its full notional at its own limit price.
	if o.Filled.IsPositive() {
		s.releaseCapacity(o.PoolID, o.Filled.Mul(o.Price))
	}

	if o.Status.Terminal() {
		return 0
	}

	sh.book.Rest(o)
	return estimateFillTime(o.RemainingNotional(), sh.book.SideDepth(o.Side))
}

func (s *OrderService) publishExecution(exec *ledger.Execution) {
	if s.exitWAL != nil {
		payload, err := json.Marshal(newExecMessage(exec))
		if err != nil {
			panic(fmt.Sprintf("service: execution %d not encodable: %v", exec.ID, err))
		}
		var werr error
		if s.durable {
			werr = s.exitWAL.PutNew(exec.ID, payload)
		} else {
			werr = s.exitWAL.PutNewIfAbsent(exec.ID, payload)
		}
		if werr != nil {
			s.log.Error("exit wal put failed", "execution_id", exec.ID, "err", werr)
		}
	}
	if s.durable && s.feed != nil {
		if !s.feed.Enqueue(exec) {
			s.log.Warn("feed buffer full, dropping execution", "execution_id", exec.ID)
		}
	}
}

// CancelOrder removes a resting order. Only the submitting client may
// cancel; terminal orders reject with ErrTerminalState and keep their
// final status.
func (s *OrderService) CancelOrder(ctx context.Context, clientID string, orderID uint64) (*OrderView, error) {
	h := s.handleFor(orderID)
	if h == nil {
		return nil, fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
	}
	if h.order.ClientID != clientID {
		return nil, fmt.Errorf("%w: order %d", ErrNotOwner, orderID)
	}

	h.shard.mu.Lock()
	defer h.shard.mu.Unlock()

	o := h.order
	if o.Status.Terminal() {
		return nil, fmt.Errorf("%w: order %d is %s", ErrTerminalState, orderID, o.Status)
	}

	at := s.now()
	if s.durable && s.entryWAL != nil {
		payload, err := json.Marshal(walCancel{OrderID: orderID, ClientID: clientID})
		if err != nil {
			return nil, err
		}
		if err := s.entryWAL.Append(entry.NewRecord(entry.RecordCancel, s.seq.Next(), at, payload)); err != nil {
			return nil, fmt.Errorf("append cancel to wal: %w", err)
		}
	}

	s.cancelLocked(o, h.shard, at)

	s.log.Info("order cancelled", "order_id", o.ID, "pool", o.PoolID, "filled", o.Filled.String())
	return viewOf(o), nil
}

// cancelLocked performs the actual removal. Caller holds the shard lock
// and has verified the order is live.
func (s *OrderService) cancelLocked(o *book.Order, sh *shard, at time.Time) {
	if !sh.book.Remove(o) {
		// A live order always rests in its shard's book.
		panic(fmt.Sprintf("service: live order %d missing from book %s/%s", o.ID, o.PoolID, o.Symbol))
	}
	s.releaseCapacity(o.PoolID, o.RemainingNotional())
	o.Status = book.Cancelled
	o.UpdatedAt = at
}

// GetOrderStatus returns the order's externally visible state plus its
// execution history. Clients may only see their own orders.
func (s *OrderService) GetOrderStatus(ctx context.Context, clientID string, orderID uint64) (*OrderView, []*ledger.Execution, error) {
	h := s.handleFor(orderID)
	if h == nil {
		return nil, nil, fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
	}
	if h.order.ClientID != clientID {
		return nil, nil, fmt.Errorf("%w: order %d", ErrNotOwner, orderID)
	}

	h.shard.mu.Lock()
	view := viewOf(h.order)
	h.shard.mu.Unlock()

	return view, s.ledger.ByOrder(orderID), nil
}

// GetPoolStatus aggregates live book state for one pool across all of
// its symbol shards. Shards are read one at a time, so the numbers are
// a near-instant composite rather than a frozen cut.
func (s *OrderService) GetPoolStatus(ctx context.Context, poolID string) (*PoolStatus, error) {
	pool, err := s.registry.Get(poolID)
	if err != nil {
		return nil, err
	}

	status := &PoolStatus{
		PoolID:           pool.ID,
		Name:             pool.Name,
		Capacity:         pool.Capacity,
		ParticipantCount: pool.ParticipantCount(),
		RestingNotional:  decimal.Zero,
	}

	s.mu.RLock()
	shards := make([]*shard, 0, 4)
	for key, sh := range s.shards {
		if key.poolID == poolID {
			shards = append(shards, sh)
		}
	}
	s.mu.RUnlock()

	for _, sh := range shards {
		sh.mu.Lock()
		status.ActiveOrders += sh.book.ActiveOrders()
		status.BookDepth += sh.book.Depth()
		status.RestingNotional = status.RestingNotional.Add(sh.book.RestingNotional())
		sh.mu.Unlock()
	}
	return status, nil
}

// Capture freezes every shard at once and returns the resting orders
// together with the sequence boundary. Holding s.mu for reading blocks
// shard creation, and ids are issued inside shard critical sections, so
// every id at or below the boundary is fully applied in the capture.
func (s *OrderService) Capture(visit func(*book.Order)) (boundary uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]shardKey, 0, len(s.shards))
	for key := range s.shards {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].poolID != keys[j].poolID {
			return keys[i].poolID < keys[j].poolID
		}
		return keys[i].symbol < keys[j].symbol
	})

	locked := make([]*shard, 0, len(keys))
	for _, key := range keys {
		sh := s.shards[key]
		sh.mu.Lock()
		locked = append(locked, sh)
	}
	defer func() {
		for _, sh := range locked {
			sh.mu.Unlock()
		}
	}()

	boundary = s.seq.Current()
	for _, sh := range locked {
		sh.book.WalkResting(visit)
	}
	return boundary
}

// ---- capacity accounting ----

// reserveCapacity admits an order only if the pool's resting notional
// plus the order's full notional stays within capacity. Conservative:
// the order may fill immediately and never rest.
func (s *OrderService) reserveCapacity(pool *venue.Pool, notional decimal.Decimal) error {
	s.usageMu.Lock()
	defer s.usageMu.Unlock()

	used := s.poolUsage[pool.ID]
	if used.Add(notional).GreaterThan(pool.Capacity) {
		return newValidationError(fmt.Sprintf(
			"pool %s capacity exceeded: used %s + order %s > %s",
			pool.ID, used, notional, pool.Capacity))
	}
	s.poolUsage[pool.ID] = used.Add(notional)
	return nil
}

func (s *OrderService) releaseCapacity(poolID string, notional decimal.Decimal) {
	if !notional.IsPositive() {
		return
	}
	s.usageMu.Lock()
	defer s.usageMu.Unlock()
	s.poolUsage[poolID] = s.poolUsage[poolID].Sub(notional)
}

// addUsage restores accounting for an order loaded from a snapshot,
// which already passed admission when it was first accepted.
func (s *OrderService) addUsage(poolID string, notional decimal.Decimal) {
	s.usageMu.Lock()
	defer s.usageMu.Unlock()
	s.poolUsage[poolID] = s.poolUsage[poolID].Add(notional)
}

// ---- bookkeeping ----

func (s *OrderService) shardFor(poolID, symbol string) *shard {
	key := shardKey{poolID: poolID, symbol: symbol}

	s.mu.RLock()
	sh, ok := s.shards[key]
	s.mu.RUnlock()
	if ok {
		return sh
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sh, ok = s.shards[key]; ok {
		return sh
	}
	sh = &shard{book: book.NewOrderBook(poolID, symbol)}
	s.shards[key] = sh
	return sh
}

func (s *OrderService) handleFor(orderID uint64) *orderHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orders[orderID]
}

func (s *OrderService) index(o *book.Order, sh *shard) {
	s.mu.Lock()
	s.orders[o.ID] = &orderHandle{order: o, shard: sh}
	s.mu.Unlock()
}
