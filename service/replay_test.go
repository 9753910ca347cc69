package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umbra/domain/book"
	"umbra/domain/ledger"
	"umbra/infra/sequence"
	"umbra/infra/wal/entry"
	"umbra/snapshot"
)

func newDurableService(t *testing.T, dir string) (*OrderService, *entry.WAL) {
	t.Helper()
	w, err := entry.Open(entry.Config{Dir: dir, SegmentSize: 1 << 20})
	require.NoError(t, err)

	registry := newTestRegistry(t)
	validator := NewValidator(registry, Limits{MinOrderSize: dec("100")}, nil, "equity", nil)
	svc := NewOrderService(Deps{
		Registry:  registry,
		Validator: validator,
		Ledger:    ledger.New(),
		Seq:       sequence.New(0),
		EntryWAL:  w,
		Clock:     func() time.Time { return testClock },
	})
	return svc, w
}

func newRecoveryService(t *testing.T) *OrderService {
	t.Helper()
	registry := newTestRegistry(t)
	validator := NewValidator(registry, Limits{MinOrderSize: dec("100")}, nil, "equity", nil)
	return NewOrderService(Deps{
		Registry:  registry,
		Validator: validator,
		Ledger:    ledger.New(),
		Seq:       sequence.New(0),
		Clock:     func() time.Time { return testClock },
	})
}

func TestReplayRebuildsBooksAndLedger(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	svc, w := newDurableService(t, dir)

	maker, err := svc.SubmitOrder(ctx, submitReq("alice", "sell", "100", "50"))
	require.NoError(t, err)
	taker, err := svc.SubmitOrder(ctx, submitReq("bob", "buy", "40", "50"))
	require.NoError(t, err)

	resting, err := svc.SubmitOrder(ctx, submitReq("carol", "buy", "30", "45"))
	require.NoError(t, err)

	cancelled, err := svc.SubmitOrder(ctx, submitReq("dave", "sell", "30", "60"))
	require.NoError(t, err)
	_, err = svc.CancelOrder(ctx, "dave", cancelled.OrderID)
	require.NoError(t, err)

	require.NoError(t, w.Close())

	// Cold start from the log alone.
	fresh := newRecoveryService(t)
	_, err = fresh.Replay(dir, 0)
	require.NoError(t, err)

	view, execs, err := fresh.GetOrderStatus(ctx, "alice", maker.OrderID)
	require.NoError(t, err)
	assert.Equal(t, book.PartiallyFilled, view.Status)
	assert.True(t, view.Filled.Equal(dec("40")))
	require.Len(t, execs, 1)
	assert.True(t, execs[0].Price.Equal(dec("50")))

	tview, _, err := fresh.GetOrderStatus(ctx, "bob", taker.OrderID)
	require.NoError(t, err)
	assert.Equal(t, book.Filled, tview.Status)

	rview, _, err := fresh.GetOrderStatus(ctx, "carol", resting.OrderID)
	require.NoError(t, err)
	assert.Equal(t, book.Pending, rview.Status)

	cview, _, err := fresh.GetOrderStatus(ctx, "dave", cancelled.OrderID)
	require.NoError(t, err)
	assert.Equal(t, book.Cancelled, cview.Status)

	ps, err := fresh.GetPoolStatus(ctx, "midnight")
	require.NoError(t, err)
	assert.Equal(t, 2, ps.ActiveOrders)

	// New ids must not collide with replayed history.
	next, err := fresh.SubmitOrder(ctx, submitReq("erin", "buy", "100", "40"))
	require.NoError(t, err)
	assert.Greater(t, next.OrderID, cancelled.OrderID)
}

func TestReplayRegeneratesExecutionIDs(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	svc, w := newDurableService(t, dir)
	_, err := svc.SubmitOrder(ctx, submitReq("alice", "sell", "100", "50"))
	require.NoError(t, err)
	taker, err := svc.SubmitOrder(ctx, submitReq("bob", "buy", "100", "50"))
	require.NoError(t, err)

	_, origExecs, err := svc.GetOrderStatus(ctx, "bob", taker.OrderID)
	require.NoError(t, err)
	require.Len(t, origExecs, 1)
	require.NoError(t, w.Close())

	fresh := newRecoveryService(t)
	_, err = fresh.Replay(dir, 0)
	require.NoError(t, err)

	_, execs, err := fresh.GetOrderStatus(ctx, "bob", taker.OrderID)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, origExecs[0].ID, execs[0].ID)
}

func TestReplayPreservesTimestamps(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	svc, w := newDurableService(t, dir)
	resting, err := svc.SubmitOrder(ctx, submitReq("alice", "sell", "100", "50"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	fresh := newRecoveryService(t)
	_, err = fresh.Replay(dir, 0)
	require.NoError(t, err)

	view, _, err := fresh.GetOrderStatus(ctx, "alice", resting.OrderID)
	require.NoError(t, err)
	assert.True(t, view.CreatedAt.Equal(testClock), "created %v, want %v", view.CreatedAt, testClock)
	assert.True(t, view.UpdatedAt.Equal(testClock), "updated %v, want %v", view.UpdatedAt, testClock)
}

func TestSnapshotRestoreThenReplayTail(t *testing.T) {
	walDir := t.TempDir()
	snapDir := t.TempDir()
	ctx := context.Background()

	svc, w := newDurableService(t, walDir)

	maker, err := svc.SubmitOrder(ctx, submitReq("alice", "sell", "100", "50"))
	require.NoError(t, err)

	boundary, err := svc.TakeSnapshot(snapDir)
	require.NoError(t, err)
	require.GreaterOrEqual(t, boundary, maker.OrderID)

	// Activity after the snapshot lives only in the log tail.
	taker, err := svc.SubmitOrder(ctx, submitReq("bob", "buy", "60", "50"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	fresh := newRecoveryService(t)
	snap, err := snapshot.LoadLatest(snapDir)
	require.NoError(t, err)
	require.NotNil(t, snap)
	fresh.Restore(snap)

	_, err = fresh.Replay(walDir, snap.Seq)
	require.NoError(t, err)

	view, _, err := fresh.GetOrderStatus(ctx, "alice", maker.OrderID)
	require.NoError(t, err)
	assert.Equal(t, book.PartiallyFilled, view.Status)
	assert.True(t, view.Filled.Equal(dec("60")))

	tview, _, err := fresh.GetOrderStatus(ctx, "bob", taker.OrderID)
	require.NoError(t, err)
	assert.Equal(t, book.Filled, tview.Status)
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()

	snap := &snapshot.Snapshot{
		Seq:       42,
		CreatedAt: testClock.UnixNano(),
		Orders: []snapshot.OrderEntry{{
			ID: 7, ClientID: "alice", PoolID: "midnight", Symbol: "ACME",
			Side: uint8(book.Sell), Price: dec("50"), Qty: dec("100"),
			Filled: dec("25"), Status: uint8(book.PartiallyFilled),
			SeqID: 7, CreatedAt: testClock.UnixNano(), UpdatedAt: testClock.UnixNano(),
		}},
	}
	require.NoError(t, snapshot.Write(dir, snap))

	loaded, err := snapshot.LoadLatest(dir)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, uint64(42), loaded.Seq)
	require.Len(t, loaded.Orders, 1)
	assert.True(t, loaded.Orders[0].Price.Equal(dec("50")))
	assert.True(t, loaded.Orders[0].Filled.Equal(dec("25")))
}
