// Package embed converts text batches into fixed-dimension vectors via the
// remote embedding provider. A failed sub-batch degrades to synthetic vectors
// instead of failing the pipeline.
package embed

import (
	"context"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/doc-organizer/pkg/logger"
)

const (
	defaultBatchSize = 25
	defaultDimension = 1536

	// fallbackSeed makes synthetic vectors reproducible for a given failure
	// pattern: each sub-batch derives its own generator from this seed.
	fallbackSeed = 42
)

// EmbeddingAPI is the remote provider dependency.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float64, error)
}

// Service fans texts out to the provider in fixed-size sub-batches.
type Service struct {
	api       EmbeddingAPI
	logger    logger.Logger
	batchSize int
	dimension int
}

func NewService(api EmbeddingAPI, log logger.Logger, batchSize, dimension int) *Service {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if dimension <= 0 {
		dimension = defaultDimension
	}
	return &Service{
		api:       api,
		logger:    log,
		batchSize: batchSize,
		dimension: dimension,
	}
}

// EmbedBatch returns one vector per input text, order-preserving. It never
// fails: sub-batches whose remote call errors are replaced element-wise with
// uniform random vectors and the error is logged.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) [][]float64 {
	vectors := make([][]float64, len(texts))
	if len(texts) == 0 {
		return vectors
	}

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(texts); start += s.batchSize {
		start := start
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batchIndex := start / s.batchSize

		g.Go(func() error {
			batch := texts[start:end]
			result, err := s.api.CreateEmbeddings(gctx, batch)
			if err != nil {
				s.logger.Error("embedding sub-batch failed",
					logger.Int("batchIndex", batchIndex),
					logger.Int("batchSize", len(batch)),
					logger.Error(err),
				)
				result = s.syntheticVectors(batchIndex, len(batch))
			}
			copy(vectors[start:end], result)
			return nil
		})
	}
	_ = g.Wait()

	return vectors
}

// Dimension returns the configured vector dimensionality.
func (s *Service) Dimension() int {
	return s.dimension
}

func (s *Service) syntheticVectors(batchIndex, count int) [][]float64 {
	rng := rand.New(rand.NewSource(fallbackSeed + int64(batchIndex)))
	vectors := make([][]float64, count)
	for i := range vectors {
		vec := make([]float64, s.dimension)
		for j := range vec {
			vec[j] = rng.Float64()
		}
		vectors[i] = vec
	}
	return vectors
}
