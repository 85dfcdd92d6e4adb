package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/doc-organizer/api/handlers"
	"github.com/feichai0017/doc-organizer/api/routes"
	cfg "github.com/feichai0017/doc-organizer/config"
	"github.com/feichai0017/doc-organizer/internal/extract"
	"github.com/feichai0017/doc-organizer/internal/ml"
	"github.com/feichai0017/doc-organizer/internal/ml/cluster"
	"github.com/feichai0017/doc-organizer/internal/ml/embed"
	"github.com/feichai0017/doc-organizer/internal/ml/label"
	"github.com/feichai0017/doc-organizer/internal/ml/reduce"
	"github.com/feichai0017/doc-organizer/internal/privacy"
	"github.com/feichai0017/doc-organizer/internal/service/organize"
	"github.com/feichai0017/doc-organizer/pkg/logger"
	"github.com/feichai0017/doc-organizer/pkg/openrouter"
	"github.com/feichai0017/doc-organizer/pkg/queue"
	"github.com/feichai0017/doc-organizer/pkg/storage"
	"github.com/feichai0017/doc-organizer/pkg/storage/minio"
)

func main() {
	// init logger
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/app.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	serverCfg := cfg.GetServerConfig()
	orCfg := cfg.GetOpenRouterConfig()

	client := openrouter.NewClient(openrouter.Config{
		BaseURL:        orCfg.BaseURL,
		APIKey:         orCfg.APIKey,
		EmbeddingModel: orCfg.EmbeddingModel,
		ChatModel:      orCfg.ChatModel,
		VisionModel:    orCfg.VisionModel,
		ProviderOrder:  orCfg.ProviderOrder,
		Timeout:        orCfg.Timeout,
	})

	extractor := extract.NewExtractor(client, privacy.NewScrubber(), log.Named("extract"), serverCfg.Pipeline.MaxCPUWorkers)

	embedder := embed.NewService(client, log.Named("embed"), serverCfg.Pipeline.EmbeddingBatchSize, orCfg.EmbeddingDim)
	reducer := reduce.NewReducer(log.Named("reduce"))
	engine := cluster.NewEngine(log.Named("cluster"), serverCfg.Pipeline.MinClusterSize)
	labeler := label.NewLabeler(client, log.Named("label"))
	pipeline := ml.NewPipeline(embedder, reducer, engine, labeler, log.Named("pipeline"))

	var q queue.Queue
	queueCfg := cfg.GetQueueConfig()
	q = queue.NewAsynqQueue(&queue.QueueConfig{
		RedisAddr: queueCfg.RedisAddr,
		RedisDB:   queueCfg.RedisDB,
	})
	defer q.Close()

	// the archive store is optional: the service runs without it
	var store storage.Storage
	if s, err := minio.NewMinioStorage(log.Named("storage")); err != nil {
		log.Warn("Archive store unavailable, continuing without it", logger.Error(err))
	} else {
		store = s
	}

	organizer := organize.NewService(extractor, pipeline, labeler, q, store, log.Named("organize"))

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := organizer.CleanupArchives(cleanupCtx); err != nil {
					log.Error("Archive cleanup failed", logger.Error(err))
				}
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	h := handlers.NewHandlers(organizer, serverCfg.MaxUploadSize, log)
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = serverCfg.MaxUploadSize
	routes.SetupRoutes(r, h)

	srv := &http.Server{
		Addr:    serverCfg.Addr,
		Handler: r,
	}

	// start server
	go func() {
		log.Info("Server starting", logger.String("addr", serverCfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error:", logger.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown:", logger.Error(err))
	}
}
