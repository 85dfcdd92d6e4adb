package organize

import (
	"context"
	"io"

	"github.com/feichai0017/doc-organizer/internal/models"
	"github.com/feichai0017/doc-organizer/pkg/queue"
)

// Result is the complete outcome of one organize request.
type Result struct {
	RequestID string
	Summary   string
	Archive   []byte
	Documents []models.OrganizedDocument
}

// Organizer is the request-scoped orchestration above the pipeline core.
type Organizer interface {
	OrganizeBatch(ctx context.Context, uploads []models.RawUpload) (*Result, error)
	GetArchive(ctx context.Context, requestID string) (io.ReadCloser, error)
	GetStatus(ctx context.Context, requestID string) (*queue.RequestStatus, error)
	CleanupArchives(ctx context.Context) error
}
