// Package broadcaster drains the exit WAL into Kafka. Delivery is
// at-least-once: a record is only marked ACKED after the broker
// confirms the write, so a crash between send and ack re-publishes.
package broadcaster

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/IBM/sarama"

	exitwal "umbra/infra/wal/exit"
)

type Broadcaster struct {
	exitWAL  *exitwal.WAL
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      *slog.Logger
}

func New(exitWAL *exitwal.WAL, brokers []string, topic string, log *slog.Logger) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Broadcaster{
		exitWAL:  exitWAL,
		producer: producer,
		topic:    topic,
		interval: 250 * time.Millisecond,
		log:      log,
	}, nil
}

// Run blocks until ctx is cancelled, scanning for unacked executions on
// a fixed cadence.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Info("broadcaster started", "topic", b.topic)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.drainOnce()
		}
	}
}

func (b *Broadcaster) drainOnce() {
	err := b.exitWAL.ScanPending(func(rec exitwal.Record) error {
		if err := b.exitWAL.MarkSent(rec.Seq); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(keyOf(rec.Seq)),
			Value: sarama.ByteEncoder(rec.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			// Marked FAILED; the next scan retries it.
			b.log.Warn("publish failed", "seq", rec.Seq, "err", err)
			_ = b.exitWAL.MarkFailed(rec.Seq)
			return nil
		}

		return b.exitWAL.MarkAcked(rec.Seq)
	})
	if err != nil {
		b.log.Error("exit wal scan failed", "err", err)
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}

func keyOf(seq uint64) string {
	return strconv.FormatUint(seq, 10)
}
