// Package postgres persists per-document metadata rows.
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feichai0017/doc-organizer/internal/models"
	"github.com/feichai0017/doc-organizer/pkg/logger"
)

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS document_metadata (
		id UUID PRIMARY KEY,
		filename TEXT NOT NULL,
		file_size_kb BIGINT NOT NULL,
		file_type TEXT NOT NULL,
		page_count INTEGER,
		language TEXT NOT NULL,
		cluster_label TEXT NOT NULL,
		x_coord DOUBLE PRECISION NOT NULL,
		y_coord DOUBLE PRECISION NOT NULL,
		processed_at TIMESTAMPTZ NOT NULL
	)`

// MetadataStore writes document_metadata rows through a pgx pool.
type MetadataStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewMetadataStore connects and ensures the table exists.
func NewMetadataStore(ctx context.Context, connString string, log logger.Logger) (*MetadataStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create document_metadata table: %w", err)
	}

	return &MetadataStore{pool: pool, logger: log}, nil
}

// SaveBatch inserts all records in a single transaction.
func (s *MetadataStore) SaveBatch(ctx context.Context, records []models.MetadataRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO document_metadata
				(id, filename, file_size_kb, file_type, page_count, language,
				 cluster_label, x_coord, y_coord, processed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			uuid.New(), r.Filename, r.FileSizeKB, r.FileType, r.PageCount,
			r.Language, r.ClusterLabel, r.XCoord, r.YCoord, r.ProcessedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to insert metadata row: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit metadata batch: %w", err)
	}

	s.logger.Debug("Saved document metadata", logger.Int("count", len(records)))
	return nil
}

// Close releases the connection pool.
func (s *MetadataStore) Close() {
	s.pool.Close()
}
