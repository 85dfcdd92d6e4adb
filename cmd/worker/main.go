package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cfg "github.com/feichai0017/doc-organizer/config"
	"github.com/feichai0017/doc-organizer/internal/store/postgres"
	"github.com/feichai0017/doc-organizer/pkg/logger"
	"github.com/feichai0017/doc-organizer/pkg/worker"
)

func main() {
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := postgres.NewMetadataStore(ctx, cfg.GetPostgresConfig().URL, log.Named("store"))
	if err != nil {
		log.Error("Failed to connect metadata store", logger.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	queueCfg := cfg.GetQueueConfig()
	workerCfg := &worker.Config{
		RedisAddr:   queueCfg.RedisAddr,
		RedisDB:     queueCfg.RedisDB,
		Concurrency: queueCfg.Concurrency,
		Queues: map[string]int{
			"default": 3,
			"low":     1,
		},
	}

	metadataWorker, err := worker.NewMetadataWorker(workerCfg, store, log.Named("worker"))
	if err != nil {
		log.Error("Failed to create metadata worker", logger.Error(err))
		os.Exit(1)
	}

	if err := metadataWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down worker...")
	metadataWorker.Stop()
	log.Info("Worker stopped")
}
