package service

import (
	"context"
	"log/slog"
	"time"

	"umbra/domain/book"
	"umbra/snapshot"
)

// TakeSnapshot captures the resting books and writes them to dir,
// returning the sequence boundary the snapshot covers.
func (s *OrderService) TakeSnapshot(dir string) (uint64, error) {
	snap := &snapshot.Snapshot{CreatedAt: s.now().UnixNano()}
	snap.Seq = s.Capture(func(o *book.Order) {
		snap.Orders = append(snap.Orders, snapshot.OrderEntry{
			ID:         o.ID,
			ClientID:   o.ClientID,
			PoolID:     o.PoolID,
			Symbol:     o.Symbol,
			Side:       uint8(o.Side),
			Price:      o.Price,
			Qty:        o.Qty,
			MinFill:    o.MinFill,
			Filled:     o.Filled,
			Iceberg:    o.Iceberg,
			DisplayQty: o.DisplayQty,
			Status:     uint8(o.Status),
			SeqID:      o.SeqID,
			CreatedAt:  o.CreatedAt.UnixNano(),
			UpdatedAt:  o.UpdatedAt.UnixNano(),
		})
	})

	if err := snapshot.Write(dir, snap); err != nil {
		return 0, err
	}
	return snap.Seq, nil
}

// Restore loads a snapshot's resting orders back into the books.
// Must run before Replay and before the service takes traffic.
func (s *OrderService) Restore(snap *snapshot.Snapshot) {
	for _, e := range snap.Orders {
		o := &book.Order{
			ID:         e.ID,
			ClientID:   e.ClientID,
			PoolID:     e.PoolID,
			Symbol:     e.Symbol,
			Side:       book.Side(e.Side),
			Price:      e.Price,
			Qty:        e.Qty,
			MinFill:    e.MinFill,
			Filled:     e.Filled,
			Iceberg:    e.Iceberg,
			DisplayQty: e.DisplayQty,
			Status:     book.Status(e.Status),
			SeqID:      e.SeqID,
			CreatedAt:  time.Unix(0, e.CreatedAt),
			UpdatedAt:  time.Unix(0, e.UpdatedAt),
		}

		sh := s.shardFor(o.PoolID, o.Symbol)
		sh.mu.Lock()
		sh.book.Rest(o)
		sh.mu.Unlock()
		s.index(o, sh)
		s.addUsage(o.PoolID, o.RemainingNotional())
	}

	if snap.Seq > s.seq.Current() {
		s.seq.Reset(snap.Seq)
	}
	s.log.Info("snapshot restored", "seq", snap.Seq, "orders", len(snap.Orders))
}

// SnapshotJob periodically snapshots the books and truncates both WALs
// up to the covered boundary.
type SnapshotJob struct {
	svc      *OrderService
	dir      string
	interval time.Duration
	log      *slog.Logger
}

func NewSnapshotJob(svc *OrderService, dir string, interval time.Duration, log *slog.Logger) *SnapshotJob {
	return &SnapshotJob{svc: svc, dir: dir, interval: interval, log: log}
}

// Run blocks until ctx is cancelled, taking a final snapshot on the way
// out so a clean shutdown replays nothing.
func (j *SnapshotJob) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.snapshot()
			return
		case <-ticker.C:
			j.snapshot()
		}
	}
}

func (j *SnapshotJob) snapshot() {
	start := time.Now()
	seq, err := j.svc.TakeSnapshot(j.dir)
	if err != nil {
		j.log.Error("snapshot failed", "err", err)
		return
	}

	if err := snapshot.Prune(j.dir, seq); err != nil {
		j.log.Warn("snapshot prune failed", "err", err)
	}
	if w := j.svc.entryWAL; w != nil {
		if err := w.TruncateBefore(seq); err != nil {
			j.log.Warn("entry wal truncate failed", "err", err)
		}
	}
	if w := j.svc.exitWAL; w != nil {
		if err := w.TruncateAckedUpTo(seq); err != nil {
			j.log.Warn("exit wal truncate failed", "err", err)
		}
	}

	j.log.Info("snapshot written", "seq", seq, "took", time.Since(start).String())
}
