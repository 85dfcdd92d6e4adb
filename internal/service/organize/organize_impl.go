// Package organize coordinates one upload batch end to end: filename de-dup,
// extraction, semantic organization, zip packaging and the best-effort side
// channels (metadata queue, archive store).
package organize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/feichai0017/doc-organizer/internal/models"
	"github.com/feichai0017/doc-organizer/pkg/archive"
	"github.com/feichai0017/doc-organizer/pkg/logger"
	"github.com/feichai0017/doc-organizer/pkg/queue"
	"github.com/feichai0017/doc-organizer/pkg/storage"
)

// ErrEmptyBatch is returned when a request carries no files.
var ErrEmptyBatch = errors.New("no documents in batch")

// archiveRetention bounds how long stored bundles stay downloadable.
const archiveRetention = 7 * 24 * time.Hour

// Extractor turns raw uploads into extracted documents.
type Extractor interface {
	ExtractBatch(ctx context.Context, uploads []models.RawUpload) []models.ExtractedDocument
}

// Pipeline assigns folders and coordinates to extracted documents.
type Pipeline interface {
	Organize(ctx context.Context, docs []models.ExtractedDocument) []models.OrganizedDocument
}

// Summarizer produces the dataset-level description.
type Summarizer interface {
	SummarizeDataset(ctx context.Context, docs []models.OrganizedDocument) string
}

type service struct {
	extractor  Extractor
	pipeline   Pipeline
	summarizer Summarizer
	queue      queue.Queue
	store      storage.Storage
	logger     logger.Logger
}

// NewService wires the organize service. Queue and store may be nil; the
// corresponding side channels are then skipped.
func NewService(
	extractor Extractor,
	pipeline Pipeline,
	summarizer Summarizer,
	q queue.Queue,
	store storage.Storage,
	log logger.Logger,
) Organizer {
	return &service{
		extractor:  extractor,
		pipeline:   pipeline,
		summarizer: summarizer,
		queue:      q,
		store:      store,
		logger:     log,
	}
}

func (s *service) OrganizeBatch(ctx context.Context, uploads []models.RawUpload) (*Result, error) {
	if len(uploads) == 0 {
		return nil, ErrEmptyBatch
	}

	requestID := uuid.New().String()
	log := s.logger.With(logger.String("requestId", requestID))
	log.Info("Organizing batch", logger.Int("documents", len(uploads)))

	dedupeFilenames(uploads)

	docs := s.extractor.ExtractBatch(ctx, uploads)
	organized := s.pipeline.Organize(ctx, docs)
	summary := s.summarizer.SummarizeDataset(ctx, organized)

	entries := make([]archive.Entry, len(organized))
	for i, doc := range organized {
		entries[i] = archive.Entry{
			Folder:   doc.Folder,
			Filename: doc.Filename,
			Content:  doc.Content,
		}
	}
	bundle, err := archive.Build(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to package organized documents: %w", err)
	}

	s.persistMetadata(ctx, requestID, organized, log)
	s.archiveBundle(ctx, requestID, bundle, log)

	log.Info("Batch organized",
		logger.Int("documents", len(organized)),
		logger.Int("archiveBytes", len(bundle)),
	)

	return &Result{
		RequestID: requestID,
		Summary:   summary,
		Archive:   bundle,
		Documents: organized,
	}, nil
}

func (s *service) GetArchive(ctx context.Context, requestID string) (io.ReadCloser, error) {
	if s.store == nil {
		return nil, errors.New("archive store not configured")
	}
	return s.store.Get(ctx, archiveKey(requestID))
}

// CleanupArchives removes stored bundles older than the retention period.
// Run periodically by the server process; a missing store is a no-op.
func (s *service) CleanupArchives(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	threshold := time.Now().Add(-archiveRetention)
	if err := s.store.CleanupBefore(ctx, threshold); err != nil {
		return fmt.Errorf("failed to clean up archives: %w", err)
	}

	s.logger.Info("Expired archives cleaned up", logger.Time("threshold", threshold))
	return nil
}

func (s *service) GetStatus(ctx context.Context, requestID string) (*queue.RequestStatus, error) {
	if s.queue == nil {
		return nil, errors.New("queue not configured")
	}
	return s.queue.GetStatus(ctx, requestID)
}

// persistMetadata enqueues the metadata records. Failures are logged and
// swallowed; the request result never depends on the queue.
func (s *service) persistMetadata(ctx context.Context, requestID string, organized []models.OrganizedDocument, log logger.Logger) {
	if s.queue == nil {
		return
	}

	now := time.Now().UTC()
	records := make([]models.MetadataRecord, len(organized))
	for i, doc := range organized {
		records[i] = models.NewMetadataRecord(doc, now)
	}

	task := &queue.MetadataTask{RequestID: requestID, Records: records}
	if err := s.queue.EnqueueMetadata(ctx, task); err != nil {
		log.Error("Failed to enqueue metadata persistence", logger.Error(err))
	}
}

// archiveBundle uploads the zip for later retrieval. Best-effort.
func (s *service) archiveBundle(ctx context.Context, requestID string, bundle []byte, log logger.Logger) {
	if s.store == nil {
		return
	}

	key := archiveKey(requestID)
	if err := s.store.Store(ctx, bytes.NewReader(bundle), int64(len(bundle)), key); err != nil {
		log.Error("Failed to archive bundle", logger.Error(err))
	}
}

func archiveKey(requestID string) string {
	return requestID + ".zip"
}

// dedupeFilenames renames sibling duplicates in place: the second "a.txt"
// becomes "a-1.txt", the third "a-2.txt". Runs before extraction so every
// produced document carries a unique name inside the bundle.
func dedupeFilenames(uploads []models.RawUpload) {
	seen := make(map[string]int, len(uploads))
	for i := range uploads {
		name := uploads[i].Filename
		n, dup := seen[name]
		if !dup {
			seen[name] = 0
			continue
		}
		seen[name] = n + 1

		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		renamed := fmt.Sprintf("%s-%d%s", base, n+1, ext)
		// The renamed form could itself collide with a later upload.
		seen[renamed] = 0
		uploads[i].Filename = renamed
	}
}
