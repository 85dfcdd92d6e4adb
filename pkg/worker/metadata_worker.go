package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/doc-organizer/internal/models"
	"github.com/feichai0017/doc-organizer/pkg/logger"
	"github.com/feichai0017/doc-organizer/pkg/queue"
)

// MetadataSaver persists the per-document records of one request.
type MetadataSaver interface {
	SaveBatch(ctx context.Context, records []models.MetadataRecord) error
}

// MetadataWorker consumes metadata:persist tasks and writes them through the
// metadata store. Persistence is best-effort from the caller's perspective;
// retries happen here, never on the request path.
type MetadataWorker struct {
	BaseWorker
	store    MetadataSaver
	statuses *queue.StatusStore
}

func NewMetadataWorker(cfg *Config, store MetadataSaver, logger logger.Logger) (*MetadataWorker, error) {
	if cfg.Queues == nil {
		cfg.Queues = map[string]int{"default": 3, "low": 1}
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      cfg.Queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Minute
			},
		},
	)

	w := &MetadataWorker{
		BaseWorker: BaseWorker{
			server:   server,
			mux:      asynq.NewServeMux(),
			logger:   logger,
			stopChan: make(chan struct{}),
		},
		store:    store,
		statuses: queue.NewStatusStore(cfg.RedisAddr, cfg.RedisDB),
	}

	w.registerHandlers()
	return w, nil
}

func (w *MetadataWorker) registerHandlers() {
	w.mux.HandleFunc(queue.TaskTypeMetadataPersist, w.handleMetadataPersist)
}

func (w *MetadataWorker) handleMetadataPersist(ctx context.Context, t *asynq.Task) error {
	var task queue.MetadataTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		w.logger.Error("Failed to unmarshal metadata task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		return fmt.Errorf("failed to unmarshal metadata task: %w", err)
	}

	w.logger.Info("Processing metadata task",
		logger.String("requestId", task.RequestID),
		logger.Int("records", len(task.Records)),
	)

	if err := w.store.SaveBatch(ctx, task.Records); err != nil {
		w.logger.Error("Failed to persist metadata",
			logger.String("requestId", task.RequestID),
			logger.Error(err),
		)
		_ = w.statuses.Save(ctx, &queue.RequestStatus{
			RequestID: task.RequestID,
			Status:    queue.StatusFailed,
			Error:     err.Error(),
		})
		return err
	}

	_ = w.statuses.Save(ctx, &queue.RequestStatus{
		RequestID: task.RequestID,
		Status:    queue.StatusCompleted,
	})

	return nil
}

func (w *MetadataWorker) Start(ctx context.Context) error {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			w.logger.Error("Worker server stopped", logger.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}
