// Package label generates human-readable names for clusters and a summary of
// the whole organized dataset via the remote generation service. Every call
// site degrades to a fixed fallback string; a provider outage can never fail
// the pipeline.
package label

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/feichai0017/doc-organizer/internal/models"
	"github.com/feichai0017/doc-organizer/pkg/logger"
)

const (
	// FallbackLabel names clusters whose generation call failed.
	FallbackLabel = "Unclassified"

	fallbackSummary = "A collection of documents organized into folders by topic."

	nameSampleDocs   = 3
	nameSampleChars  = 500
	nameMaxTokens    = 20
	summarySamples   = 10
	summaryChars     = 300
	summaryMaxTokens = 150
)

// Generator is the remote text-generation dependency.
type Generator interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

type Labeler struct {
	api    Generator
	logger logger.Logger
}

func NewLabeler(api Generator, log logger.Logger) *Labeler {
	return &Labeler{
		api:    api,
		logger: log,
	}
}

// NameClusters generates a short display name for every cluster concurrently.
// The result always contains one entry per input cluster.
func (l *Labeler) NameClusters(ctx context.Context, clusters map[int][]string) map[int]string {
	names := make(map[int]string, len(clusters))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for id, texts := range clusters {
		id, texts := id, texts
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := l.NameCluster(ctx, texts)
			mu.Lock()
			names[id] = name
			mu.Unlock()
		}()
	}
	wg.Wait()

	return names
}

// NameCluster asks the generation service for a concise 1-3 word category
// name based on the first few documents of the cluster.
func (l *Labeler) NameCluster(ctx context.Context, texts []string) string {
	var sb strings.Builder
	sb.WriteString("Based on the following document snippets, generate a concise (1-3 words) folder name that categorizes them:\n\n")
	for i, text := range texts {
		if i == nameSampleDocs {
			break
		}
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		sb.WriteString(truncate(text, nameSampleChars))
	}

	result, err := l.api.Complete(ctx, sb.String(), nameMaxTokens)
	if err != nil {
		l.logger.Error("cluster naming failed", logger.Error(err))
		return FallbackLabel
	}

	name := cleanLabel(result)
	if name == "" {
		return FallbackLabel
	}
	return name
}

// SummarizeDataset produces a 1-3 sentence description of the collection from
// one representative document per folder.
func (l *Labeler) SummarizeDataset(ctx context.Context, docs []models.OrganizedDocument) string {
	samples := folderSamples(docs)
	if len(samples) == 0 {
		return fallbackSummary
	}

	var sb strings.Builder
	sb.WriteString("Describe the following collection of documents in 1-3 plain sentences, based on one sample per folder:\n\n")
	for _, s := range samples {
		fmt.Fprintf(&sb, "[%s] %s\n", s.folder, truncate(s.text, summaryChars))
	}

	result, err := l.api.Complete(ctx, sb.String(), summaryMaxTokens)
	if err != nil {
		l.logger.Error("dataset summary failed", logger.Error(err))
		return fallbackSummary
	}

	summary := strings.TrimSpace(result)
	if summary == "" {
		return fallbackSummary
	}
	return summary
}

type folderSample struct {
	folder string
	text   string
}

// folderSamples picks the first non-empty-text document per distinct folder,
// in document order, capped at summarySamples.
func folderSamples(docs []models.OrganizedDocument) []folderSample {
	seen := make(map[string]bool)
	var samples []folderSample
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" || seen[doc.Folder] {
			continue
		}
		seen[doc.Folder] = true
		samples = append(samples, folderSample{folder: doc.Folder, text: doc.Text})
		if len(samples) == summarySamples {
			break
		}
	}
	return samples
}

// cleanLabel strips surrounding whitespace, quotes and markdown emphasis
// markers from a generated name.
func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`*_")
	return strings.TrimSpace(s)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
