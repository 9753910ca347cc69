package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umbra/domain/book"
	"umbra/domain/ledger"
	"umbra/domain/venue"
	"umbra/infra/sequence"
)

var testClock = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestRegistry(t *testing.T) *venue.Registry {
	t.Helper()
	registry := venue.NewRegistry()
	require.NoError(t, registry.Add(venue.NewPool(
		"midnight", "Midnight Crossing",
		dec("100000000"), dec("1000"), dec("10000000"),
		venue.FeeSchedule{Maker: dec("0.001"), Taker: dec("0.002")},
		venue.PrivacyEnhanced, venue.SettleT2, testClock,
	)))
	require.NoError(t, registry.Add(venue.NewPool(
		"shallow", "Shallow Pool",
		dec("20000"), dec("1000"), dec("10000000"),
		venue.FeeSchedule{Maker: dec("0"), Taker: dec("0")},
		venue.PrivacyStandard, venue.SettleT1, testClock,
	)))
	return registry
}

func newTestService(t *testing.T) *OrderService {
	t.Helper()
	registry := newTestRegistry(t)
	validator := NewValidator(
		registry,
		Limits{MinOrderSize: dec("100")},
		map[string]string{"ACME": "equity", "GOV7": "bond"},
		"equity",
		map[string][]venue.SettlementType{
			"equity": {venue.SettleT0, venue.SettleT1, venue.SettleT2},
			"bond":   {venue.SettleT1},
		},
	)
	return NewOrderService(Deps{
		Registry:  registry,
		Validator: validator,
		Ledger:    ledger.New(),
		Seq:       sequence.New(0),
		Clock:     func() time.Time { return testClock },
	})
}

func submitReq(clientID, side, qty, price string) OrderRequest {
	s := book.Buy
	if side == "sell" {
		s = book.Sell
	}
	return OrderRequest{
		ClientID:   clientID,
		Symbol:     "ACME",
		Side:       s,
		Qty:        dec(qty),
		Price:      dec(price),
		PoolID:     "midnight",
		Privacy:    "Enhanced",
		Settlement: "T+2",
	}
}

func TestSubmitAndCrossAtMakerPrice(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	maker, err := svc.SubmitOrder(ctx, submitReq("alice", "sell", "100", "50"))
	require.NoError(t, err)
	assert.Equal(t, book.Pending, maker.Status)
	assert.GreaterOrEqual(t, maker.EstimatedFill, 30*time.Second)

	taker, err := svc.SubmitOrder(ctx, submitReq("bob", "buy", "100", "52"))
	require.NoError(t, err)
	assert.Equal(t, book.Filled, taker.Status)
	assert.Equal(t, time.Duration(0), taker.EstimatedFill)

	view, execs, err := svc.GetOrderStatus(ctx, "bob", taker.OrderID)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.True(t, execs[0].Price.Equal(dec("50")), "execution must use the maker price")
	assert.True(t, view.Remaining.IsZero())

	// Fees as fractions of executed notional 5000.
	assert.True(t, execs[0].MakerFee.Equal(dec("5")), "maker fee, got %s", execs[0].MakerFee)
	assert.True(t, execs[0].TakerFee.Equal(dec("10")), "taker fee, got %s", execs[0].TakerFee)
}

func TestValidationCollectsAllViolations(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.SubmitOrder(context.Background(), OrderRequest{
		ClientID:   "alice",
		Symbol:     "ACME",
		Side:       book.Buy,
		Qty:        dec("-5"),
		Price:      dec("0"),
		PoolID:     "no-such-pool",
		Privacy:    "Opaque",
		Settlement: "T+9",
	})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.GreaterOrEqual(t, len(verr.Violations), 5,
		"quantity, price, pool, privacy, and settlement must all be reported: %v", verr.Violations)
}

func TestSettlementSupportPerAssetClass(t *testing.T) {
	svc := newTestService(t)

	req := submitReq("alice", "buy", "100", "50")
	req.Symbol = "GOV7"
	req.Settlement = "T+2" // bonds settle T+1 only here

	_, err := svc.SubmitOrder(context.Background(), req)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Violations, 1)
}

func TestPartialFillRestsRemainder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitOrder(ctx, submitReq("alice", "sell", "40", "50"))
	require.NoError(t, err)

	taker, err := svc.SubmitOrder(ctx, submitReq("bob", "buy", "100", "50"))
	require.NoError(t, err)
	assert.Equal(t, book.PartiallyFilled, taker.Status)
	assert.Greater(t, taker.EstimatedFill, time.Duration(0))

	view, _, err := svc.GetOrderStatus(ctx, "bob", taker.OrderID)
	require.NoError(t, err)
	assert.True(t, view.Remaining.Equal(dec("60")))

	ps, err := svc.GetPoolStatus(ctx, "midnight")
	require.NoError(t, err)
	assert.Equal(t, 1, ps.ActiveOrders)
	assert.True(t, ps.RestingNotional.Equal(dec("3000")))
}

func TestMinFillSkipsSmallResting(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	small, err := svc.SubmitOrder(ctx, submitReq("alice", "sell", "30", "50"))
	require.NoError(t, err)

	req := submitReq("bob", "buy", "100", "50")
	req.MinFill = dec("50")
	taker, err := svc.SubmitOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, book.Pending, taker.Status, "30-lot candidate is below min fill")

	view, _, err := svc.GetOrderStatus(ctx, "alice", small.OrderID)
	require.NoError(t, err)
	assert.Equal(t, book.Pending, view.Status)
	assert.True(t, view.Filled.IsZero())
}

func TestIcebergStatusHidesSize(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := submitReq("alice", "sell", "1000", "50")
	req.Iceberg = true
	req.DisplayQty = dec("100")
	acc, err := svc.SubmitOrder(ctx, req)
	require.NoError(t, err)

	view, _, err := svc.GetOrderStatus(ctx, "alice", acc.OrderID)
	require.NoError(t, err)
	assert.True(t, view.Remaining.Equal(dec("100")), "status must expose only the display size")

	// The hidden quantity still matches in full.
	taker, err := svc.SubmitOrder(ctx, submitReq("bob", "buy", "600", "50"))
	require.NoError(t, err)
	assert.Equal(t, book.Filled, taker.Status)

	view, _, err = svc.GetOrderStatus(ctx, "alice", acc.OrderID)
	require.NoError(t, err)
	assert.True(t, view.Filled.Equal(dec("600")))
	assert.True(t, view.Remaining.Equal(dec("100")))
}

func TestPoolCapacityRejection(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := submitReq("alice", "buy", "300", "50") // notional 15000 of 20000
	req.PoolID = "shallow"
	req.Privacy = "Standard"
	req.Settlement = "T+1"
	_, err := svc.SubmitOrder(ctx, req)
	require.NoError(t, err)

	req2 := req
	req2.ClientID = "bob"
	req2.Qty = dec("200") // notional 10000, would exceed capacity
	_, err = svc.SubmitOrder(ctx, req2)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Violations[0], "capacity")

	// A fitting order still goes through.
	req3 := req
	req3.ClientID = "carol"
	req3.Qty = dec("100")
	_, err = svc.SubmitOrder(ctx, req3)
	assert.NoError(t, err)
}

func TestCancelReleasesCapacity(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := submitReq("alice", "buy", "300", "50")
	req.PoolID = "shallow"
	req.Privacy = "Standard"
	req.Settlement = "T+1"
	acc, err := svc.SubmitOrder(ctx, req)
	require.NoError(t, err)

	_, err = svc.CancelOrder(ctx, "alice", acc.OrderID)
	require.NoError(t, err)

	// The freed notional admits a same-sized order again.
	req.ClientID = "bob"
	_, err = svc.SubmitOrder(ctx, req)
	assert.NoError(t, err)
}

func TestCancelErrors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CancelOrder(ctx, "alice", 999)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	acc, err := svc.SubmitOrder(ctx, submitReq("alice", "sell", "100", "50"))
	require.NoError(t, err)

	_, err = svc.CancelOrder(ctx, "mallory", acc.OrderID)
	assert.ErrorIs(t, err, ErrNotOwner)

	// Fill it, then cancelling must fail without disturbing history.
	_, err = svc.SubmitOrder(ctx, submitReq("bob", "buy", "100", "50"))
	require.NoError(t, err)

	_, err = svc.CancelOrder(ctx, "alice", acc.OrderID)
	assert.ErrorIs(t, err, ErrTerminalState)

	view, execs, err := svc.GetOrderStatus(ctx, "alice", acc.OrderID)
	require.NoError(t, err)
	assert.Equal(t, book.Filled, view.Status)
	assert.Len(t, execs, 1)
}

func TestCancelledOrderKeepsFills(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	acc, err := svc.SubmitOrder(ctx, submitReq("alice", "sell", "100", "50"))
	require.NoError(t, err)

	_, err = svc.SubmitOrder(ctx, submitReq("bob", "buy", "40", "50"))
	require.NoError(t, err)

	view, err := svc.CancelOrder(ctx, "alice", acc.OrderID)
	require.NoError(t, err)
	assert.Equal(t, book.Cancelled, view.Status)
	assert.True(t, view.Filled.Equal(dec("40")), "cancellation must not erase prior fills")

	_, execs, err := svc.GetOrderStatus(ctx, "alice", acc.OrderID)
	require.NoError(t, err)
	assert.Len(t, execs, 1)
}

func TestStatusOwnership(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	acc, err := svc.SubmitOrder(ctx, submitReq("alice", "sell", "100", "50"))
	require.NoError(t, err)

	_, _, err = svc.GetOrderStatus(ctx, "mallory", acc.OrderID)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, _, err = svc.GetOrderStatus(ctx, "alice", 12345)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPoolStatusUnknownPool(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetPoolStatus(context.Background(), "nope")
	assert.ErrorIs(t, err, venue.ErrPoolNotFound)
}

func TestEstimateGrowsWithNotional(t *testing.T) {
	small := estimateFillTime(dec("500000"), 3)
	big := estimateFillTime(dec("500000000"), 3)
	assert.Equal(t, 30*time.Second, small)
	assert.Greater(t, big, small)

	empty := estimateFillTime(dec("500000"), 0)
	assert.Greater(t, empty, small, "an empty contra side should push the estimate up")
}
