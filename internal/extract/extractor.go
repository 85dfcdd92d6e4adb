// Package extract turns raw uploads into extracted documents: type-dispatched
// text extraction, PII scrubbing and language detection. Extraction never
// fails a document; any parse or provider error degrades to empty text.
package extract

import (
	"context"
	"runtime"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/doc-organizer/internal/models"
	"github.com/feichai0017/doc-organizer/internal/privacy"
	"github.com/feichai0017/doc-organizer/pkg/logger"
)

// maxPlainTextChars truncates fallback plain-text decoding.
const maxPlainTextChars = 2000

// VisionDescriber is the remote image-description dependency.
type VisionDescriber interface {
	DescribeImage(ctx context.Context, imageData []byte, mimeType, prompt string, maxTokens int) (string, error)
}

// Extractor performs batch document extraction. CPU-bound parsing runs under a
// bounded semaphore so heavy batches cannot starve the goroutines waiting on
// remote vision calls; the vision call itself is made without holding a slot.
type Extractor struct {
	vision   VisionDescriber
	scrubber privacy.Scrubber
	logger   logger.Logger
	cpuSem   chan struct{}
}

func NewExtractor(vision VisionDescriber, scrubber privacy.Scrubber, log logger.Logger, maxCPUWorkers int) *Extractor {
	if maxCPUWorkers <= 0 {
		maxCPUWorkers = runtime.NumCPU()
	}
	return &Extractor{
		vision:   vision,
		scrubber: scrubber,
		logger:   log,
		cpuSem:   make(chan struct{}, maxCPUWorkers),
	}
}

// ExtractBatch extracts all uploads concurrently. The result preserves input
// order and always has one entry per upload.
func (e *Extractor) ExtractBatch(ctx context.Context, uploads []models.RawUpload) []models.ExtractedDocument {
	results := make([]models.ExtractedDocument, len(uploads))

	g, gctx := errgroup.WithContext(ctx)
	for i, up := range uploads {
		i, up := i, up
		g.Go(func() error {
			results[i] = e.extractOne(gctx, up)
			return nil
		})
	}
	// Workers never return errors; Wait is just the join point.
	_ = g.Wait()

	return results
}

func (e *Extractor) extractOne(ctx context.Context, up models.RawUpload) models.ExtractedDocument {
	doc := models.ExtractedDocument{
		Filename: up.Filename,
		Content:  up.Content,
		Metadata: models.DocMetadata{
			SizeKB:   up.Size / 1024,
			FileType: up.FileType,
			Language: "unk",
		},
	}

	ext := strings.ToLower(up.FileType)
	if mimeType, ok := imageMIMETypes[ext]; ok {
		e.extractImage(ctx, &doc, mimeType)
		return doc
	}

	e.withCPU(ctx, func() {
		switch ext {
		case ".pdf":
			text, pages, err := extractPDF(up.Content)
			if err != nil {
				e.logger.Warn("PDF extraction failed",
					logger.String("filename", up.Filename),
					logger.Error(err),
				)
			} else {
				doc.Text = text
				doc.Metadata.PageCount = &pages
			}
		case ".docx":
			text, pages, err := extractDocx(up.Content)
			if err != nil {
				e.logger.Warn("DOCX extraction failed",
					logger.String("filename", up.Filename),
					logger.Error(err),
				)
			} else {
				doc.Text = text
				doc.Metadata.PageCount = pages
			}
		default:
			doc.Text = decodePlainText(up.Content)
		}

		e.analyze(&doc)
	})

	return doc
}

// extractImage issues the remote vision call outside the CPU semaphore and
// only takes a slot for the local pre- and post-processing around it.
func (e *Extractor) extractImage(ctx context.Context, doc *models.ExtractedDocument, mimeType string) {
	data, mime := doc.Content, mimeType
	e.withCPU(ctx, func() {
		data, mime = normalizeImage(doc.Content, mimeType)
	})

	description, err := e.vision.DescribeImage(ctx, data, mime, visionPrompt, visionMaxTokens)
	if err != nil {
		e.logger.Error("vision description failed",
			logger.String("filename", doc.Filename),
			logger.Error(err),
		)
		description = ""
	}
	doc.Text = description

	e.withCPU(ctx, func() {
		e.analyze(doc)
	})
}

// analyze applies scrubbing and language detection to the extracted text.
func (e *Extractor) analyze(doc *models.ExtractedDocument) {
	doc.Text = e.scrubber.Scrub(doc.Text)
	doc.Metadata.Language = detectLanguage(doc.Text)
}

func (e *Extractor) withCPU(ctx context.Context, fn func()) {
	select {
	case e.cpuSem <- struct{}{}:
		defer func() { <-e.cpuSem }()
		fn()
	case <-ctx.Done():
	}
}

// decodePlainText decodes bytes as UTF-8 truncated to maxPlainTextChars.
// Invalid UTF-8 yields empty text.
func decodePlainText(content []byte) string {
	if !utf8.Valid(content) {
		return ""
	}
	runes := []rune(string(content))
	if len(runes) > maxPlainTextChars {
		runes = runes[:maxPlainTextChars]
	}
	return string(runes)
}
