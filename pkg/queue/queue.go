// pkg/queue/queue.go
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/doc-organizer/internal/models"
)

// Task types handled by the worker.
const (
	TaskTypeMetadataPersist = "metadata:persist"
)

// MetadataTask carries the per-document records of one organize request.
type MetadataTask struct {
	RequestID string                  `json:"requestId"`
	Records   []models.MetadataRecord `json:"records"`
}

// Queue enqueues background tasks and exposes their status.
type Queue interface {
	EnqueueMetadata(ctx context.Context, task *MetadataTask) error
	GetStatus(ctx context.Context, requestID string) (*RequestStatus, error)
	Close() error
}

type QueueConfig struct {
	RedisAddr  string
	RedisDB    int
	MaxRetries int
	Timeout    time.Duration
}

// AsynqQueue is the asynq-backed Queue implementation.
type AsynqQueue struct {
	client   *asynq.Client
	statuses *StatusStore
	cfg      *QueueConfig
}

func NewAsynqQueue(cfg *QueueConfig) *AsynqQueue {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Minute
	}

	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	return &AsynqQueue{
		client:   client,
		statuses: NewStatusStore(cfg.RedisAddr, cfg.RedisDB),
		cfg:      cfg,
	}
}

// EnqueueMetadata queues one metadata:persist task keyed by request id and
// marks the request as queued.
func (q *AsynqQueue) EnqueueMetadata(ctx context.Context, task *MetadataTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata task: %w", err)
	}

	t := asynq.NewTask(TaskTypeMetadataPersist, payload,
		asynq.MaxRetry(q.cfg.MaxRetries),
		asynq.Timeout(q.cfg.Timeout),
		asynq.TaskID(task.RequestID),
		asynq.Queue("low"),
	)

	if _, err := q.client.EnqueueContext(ctx, t); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	// status write is informational only
	_ = q.statuses.Save(ctx, &RequestStatus{
		RequestID: task.RequestID,
		Status:    StatusQueued,
	})

	return nil
}

// GetStatus reports the persistence status of one request.
func (q *AsynqQueue) GetStatus(ctx context.Context, requestID string) (*RequestStatus, error) {
	return q.statuses.Get(ctx, requestID)
}

func (q *AsynqQueue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	return q.statuses.Close()
}
