package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Request status values as exposed by the status endpoint.
const (
	StatusQueued    = "queued"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// statusTTL keeps finished statuses around for a day.
const statusTTL = 24 * time.Hour

// ErrStatusNotFound is returned when no status exists for a request id.
var ErrStatusNotFound = errors.New("request status not found")

// RequestStatus tracks the metadata persistence progress of one request.
type RequestStatus struct {
	RequestID string    `json:"requestId"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
	Error     string    `json:"error,omitempty"`
}

// StatusStore persists request statuses in redis so the server and the worker
// processes share one view.
type StatusStore struct {
	redis *redis.Client
}

func NewStatusStore(addr string, db int) *StatusStore {
	return &StatusStore{
		redis: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
	}
}

func statusKey(requestID string) string {
	return fmt.Sprintf("request_status:%s", requestID)
}

// Save writes the status with a fixed expiry.
func (s *StatusStore) Save(ctx context.Context, status *RequestStatus) error {
	status.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	if err := s.redis.Set(ctx, statusKey(status.RequestID), data, statusTTL).Err(); err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}
	return nil
}

// Get returns the stored status or ErrStatusNotFound.
func (s *StatusStore) Get(ctx context.Context, requestID string) (*RequestStatus, error) {
	data, err := s.redis.Get(ctx, statusKey(requestID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStatusNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status from redis: %w", err)
	}

	var status RequestStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return &status, nil
}

func (s *StatusStore) Close() error {
	return s.redis.Close()
}
