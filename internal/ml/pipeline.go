// Package ml sequences the semantic organization pipeline: embedding,
// dimensionality reduction, density-based clustering and cluster labeling.
// The pipeline never returns an error; every stage degrades internally.
package ml

import (
	"context"
	"strings"

	"github.com/feichai0017/doc-organizer/internal/ml/cluster"
	"github.com/feichai0017/doc-organizer/internal/models"
	"github.com/feichai0017/doc-organizer/pkg/logger"
)

const (
	// MiscFolder receives documents that could not be organized: empty
	// extracted text, degenerate batches, or texts lost in re-association.
	MiscFolder = "Misc"

	// NoiseFolder receives documents the cluster engine marked as noise.
	NoiseFolder = "Unsorted"
)

// Embedder turns texts into vectors. Never fails.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) [][]float64
}

// Projector produces the clustering and visualization projections.
type Projector interface {
	Project(embeddings [][]float64) (clusterSpace, vizSpace [][]float64)
}

// Clusterer assigns one cluster id per point, cluster.Noise for unassigned.
type Clusterer interface {
	Cluster(points [][]float64) []int
}

// ClusterNamer generates display names for clusters of texts.
type ClusterNamer interface {
	NameClusters(ctx context.Context, clusters map[int][]string) map[int]string
}

// Pipeline drives embedding, reduction, clustering and labeling, then maps
// the result back onto the original documents.
type Pipeline struct {
	embedder  Embedder
	projector Projector
	clusterer Clusterer
	namer     ClusterNamer
	logger    logger.Logger
}

func NewPipeline(embedder Embedder, projector Projector, clusterer Clusterer, namer ClusterNamer, log logger.Logger) *Pipeline {
	return &Pipeline{
		embedder:  embedder,
		projector: projector,
		clusterer: clusterer,
		namer:     namer,
		logger:    log,
	}
}

// Organize annotates each document with a folder name and 2-D coordinates.
// The output has one entry per input, in input order. Batches with fewer than
// two usable texts short-circuit to a uniform Misc result without any remote
// calls.
func (p *Pipeline) Organize(ctx context.Context, docs []models.ExtractedDocument) []models.OrganizedDocument {
	organized := make([]models.OrganizedDocument, len(docs))
	for i, doc := range docs {
		organized[i] = models.OrganizedDocument{
			ExtractedDocument: doc,
			Folder:            MiscFolder,
		}
	}

	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) != "" {
			texts = append(texts, doc.Text)
		}
	}

	if len(texts) < 2 {
		p.logger.Info("degenerate batch, skipping organization",
			logger.Int("documents", len(docs)),
			logger.Int("usableTexts", len(texts)),
		)
		return organized
	}

	vectors := p.embedder.EmbedBatch(ctx, texts)
	clusterSpace, vizSpace := p.projector.Project(vectors)
	assignments := p.clusterer.Cluster(clusterSpace)

	groups := make(map[int][]string)
	for i, id := range assignments {
		if id != cluster.Noise {
			groups[id] = append(groups[id], texts[i])
		}
	}
	names := p.namer.NameClusters(ctx, groups)

	p.logger.Info("organization complete",
		logger.Int("documents", len(docs)),
		logger.Int("clusters", len(groups)),
	)

	// Re-associate cluster output with documents by text content. Documents
	// with identical text collapse onto the same folder and coordinates.
	type placement struct {
		folder string
		x, y   float64
	}
	smallBatch := len(texts) <= 3
	byText := make(map[string]placement, len(texts))
	for i, text := range texts {
		pl := placement{folder: NoiseFolder}
		if id := assignments[i]; id != cluster.Noise {
			pl.folder = names[id]
		}
		if smallBatch {
			// Tiny batches skip reduction; positional coordinates avoid
			// undefined output.
			pl.x = float64(i)
			pl.y = float64(i)
		} else {
			pl.x = vizSpace[i][0]
			pl.y = vizSpace[i][1]
		}
		byText[text] = pl
	}

	for i := range organized {
		if pl, ok := byText[organized[i].Text]; ok {
			organized[i].Folder = pl.folder
			organized[i].X = pl.x
			organized[i].Y = pl.y
		}
	}
	return organized
}
