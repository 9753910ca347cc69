// Package feed publishes executions to the live trade topic. It is
// best-effort by design: the ring buffer drops under pressure and sends
// are fire-and-forget with one broker ack. Anyone needing every
// execution consumes the broadcaster's topic instead.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"umbra/domain/ledger"
	"umbra/infra/kafka"
	"umbra/infra/ring"
)

// trade is the public feed shape. Order ids and fees stay private to
// the venue; only the print itself goes out.
type trade struct {
	Symbol     string `json:"symbol"`
	Qty        string `json:"qty"`
	Price      string `json:"price"`
	ExecutedAt int64  `json:"executed_at"`
}

type Job struct {
	buf      *ring.Buffer[*ledger.Execution]
	producer *kafka.Producer
	log      *slog.Logger
}

func New(buf *ring.Buffer[*ledger.Execution], producer *kafka.Producer, log *slog.Logger) *Job {
	return &Job{buf: buf, producer: producer, log: log}
}

// Run drains the buffer until ctx is cancelled.
func (j *Job) Run(ctx context.Context) {
	j.log.Info("trade feed started")

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.drain(ctx)
		}
	}
}

func (j *Job) drain(ctx context.Context) {
	for {
		exec, ok := j.buf.Dequeue()
		if !ok {
			return
		}

		payload, err := json.Marshal(trade{
			Symbol:     exec.Symbol,
			Qty:        exec.Qty.String(),
			Price:      exec.Price.String(),
			ExecutedAt: exec.ExecutedAt.UnixNano(),
		})
		if err != nil {
			continue
		}

		if err := j.producer.Send(ctx, []byte(exec.Symbol), payload); err != nil {
			j.log.Warn("feed publish failed", "symbol", exec.Symbol, "err", err)
		}
	}
}
