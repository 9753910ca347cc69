package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"umbra/api/grpcserver"
	pb "umbra/api/pb"
	"umbra/domain/ledger"
	"umbra/domain/venue"
	"umbra/infra/config"
	"umbra/infra/kafka"
	"umbra/infra/logging"
	"umbra/infra/ring"
	"umbra/infra/sequence"
	entrywal "umbra/infra/wal/entry"
	exitwal "umbra/infra/wal/exit"
	"umbra/jobs/broadcaster"
	"umbra/jobs/feed"
	"umbra/service"
	"umbra/snapshot"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(cfg.Logging.Level)

	// ---------------- Pool registry ----------------

	registry := venue.NewRegistry()
	now := time.Now()
	for _, pc := range cfg.Pools {
		privacy, _ := venue.ParsePrivacyLevel(pc.Privacy)
		settlement, _ := venue.ParseSettlementType(pc.Settlement)
		pool := venue.NewPool(
			pc.ID, pc.Name,
			pc.Capacity, pc.MinNotional, pc.MaxNotional,
			venue.FeeSchedule{Maker: pc.MakerFee, Taker: pc.TakerFee},
			privacy, settlement, now,
		)
		if err := registry.Add(pool); err != nil {
			log.Error("pool registration failed", "pool", pc.ID, "err", err)
			os.Exit(1)
		}
		for _, clientID := range pc.Participants {
			if err := registry.AddParticipant(pc.ID, clientID, now); err != nil {
				log.Error("participant seed failed", "pool", pc.ID, "client", clientID, "err", err)
				os.Exit(1)
			}
		}
	}

	// ---------------- WALs ----------------

	entryWAL, err := entrywal.Open(entrywal.Config{
		Dir:         cfg.WAL.EntryDir,
		SegmentSize: cfg.WAL.SegmentSize,
	})
	if err != nil {
		log.Error("entry wal init failed", "err", err)
		os.Exit(1)
	}
	defer entryWAL.Close()

	exitWAL, err := exitwal.Open(cfg.WAL.ExitDir)
	if err != nil {
		log.Error("exit wal init failed", "err", err)
		os.Exit(1)
	}
	defer exitWAL.Close()

	// ---------------- Service ----------------

	seq := sequence.New(0)
	feedBuf := ring.New[*ledger.Execution](cfg.Engine.FeedBuffer)

	settlementTable := make(map[string][]venue.SettlementType, len(cfg.SettlementSupport))
	for class, cycles := range cfg.SettlementSupport {
		for _, c := range cycles {
			st, _ := venue.ParseSettlementType(c)
			settlementTable[class] = append(settlementTable[class], st)
		}
	}

	validator := service.NewValidator(
		registry,
		service.Limits{
			MinOrderSize: cfg.Engine.MinOrderSize,
			MaxOrderSize: cfg.Engine.MaxOrderSize,
		},
		cfg.Symbols,
		cfg.DefaultAssetClass,
		settlementTable,
	)

	svc := service.NewOrderService(service.Deps{
		Registry:  registry,
		Validator: validator,
		Ledger:    ledger.New(),
		Seq:       seq,
		EntryWAL:  entryWAL,
		ExitWAL:   exitWAL,
		Feed:      feedBuf,
		Log:       log,
	})

	// ---------------- Recovery ----------------

	var snapSeq uint64
	if snap, err := snapshot.LoadLatest(cfg.WAL.SnapshotDir); err != nil {
		log.Error("snapshot load failed", "err", err)
		os.Exit(1)
	} else if snap != nil {
		svc.Restore(snap)
		snapSeq = snap.Seq
	}

	if _, err := svc.Replay(cfg.WAL.EntryDir, snapSeq); err != nil {
		log.Error("wal replay failed", "err", err)
		os.Exit(1)
	}

	// ---------------- Background jobs ----------------

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var jobs sync.WaitGroup

	interval := time.Duration(cfg.WAL.SnapshotIntervalSec) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	snapJob := service.NewSnapshotJob(svc, cfg.WAL.SnapshotDir, interval, log)
	jobs.Add(1)
	go func() {
		defer jobs.Done()
		snapJob.Run(ctx)
	}()

	if len(cfg.Kafka.Brokers) > 0 {
		bc, err := broadcaster.New(exitWAL, cfg.Kafka.Brokers, cfg.Kafka.ExecutionsTopic, log)
		if err != nil {
			log.Error("broadcaster init failed", "err", err)
			os.Exit(1)
		}
		defer bc.Close()
		jobs.Add(1)
		go func() {
			defer jobs.Done()
			bc.Run(ctx)
		}()

		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.FeedTopic)
		defer producer.Close()
		feedJob := feed.New(feedBuf, producer, log)
		jobs.Add(1)
		go func() {
			defer jobs.Done()
			feedJob.Run(ctx)
		}()
	} else {
		log.Warn("no kafka brokers configured, publication disabled")
	}

	// ---------------- gRPC ----------------

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		log.Error("listen failed", "addr", cfg.GRPC.Addr, "err", err)
		os.Exit(1)
	}

	grpcSrv := grpc.NewServer()
	pb.RegisterDarkPoolServiceServer(grpcSrv, grpcserver.NewServer(svc, log))

	go func() {
		log.Info("engine listening", "addr", cfg.GRPC.Addr)
		if err := grpcSrv.Serve(lis); err != nil {
			log.Error("grpc server exited", "err", err)
			cancel()
		}
	}()

	// ---------------- Shutdown ----------------

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("shutdown signal received")
	case <-ctx.Done():
	}

	grpcSrv.GracefulStop()
	cancel()
	jobs.Wait()

	if err := entryWAL.Sync(); err != nil {
		log.Warn("final wal sync failed", "err", err)
	}
	log.Info("engine stopped")
}
