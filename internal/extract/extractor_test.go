package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/doc-organizer/internal/models"
	"github.com/feichai0017/doc-organizer/internal/privacy"
	"github.com/feichai0017/doc-organizer/pkg/logger"
)

type fakeVision struct {
	description string
	err         error
	gotMIME     string
}

func (f *fakeVision) DescribeImage(ctx context.Context, imageData []byte, mimeType, prompt string, maxTokens int) (string, error) {
	f.gotMIME = mimeType
	return f.description, f.err
}

func newTestExtractor(vision VisionDescriber) *Extractor {
	return NewExtractor(vision, privacy.NewScrubber(), logger.NewTestLogger(), 2)
}

// buildDocx assembles a minimal in-memory DOCX container.
func buildDocx(documentXML, appXML string) []byte {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	if documentXML != "" {
		f, _ := w.Create("word/document.xml")
		f.Write([]byte(documentXML))
	}
	if appXML != "" {
		f, _ := w.Create("docProps/app.xml")
		f.Write([]byte(appXML))
	}

	w.Close()
	return buf.Bytes()
}

func upload(filename string, content []byte) models.RawUpload {
	ext := ""
	if i := strings.LastIndex(filename, "."); i >= 0 {
		ext = strings.ToLower(filename[i:])
	}
	return models.RawUpload{
		Filename: filename,
		Content:  content,
		Size:     int64(len(content)),
		FileType: ext,
	}
}

func TestExtractBatch_PlainText(t *testing.T) {
	e := newTestExtractor(&fakeVision{})

	docs := e.ExtractBatch(context.Background(), []models.RawUpload{
		upload("note.txt", []byte("hello world")),
	})

	require.Len(t, docs, 1)
	assert.Equal(t, "hello world", docs[0].Text)
	assert.Equal(t, ".txt", docs[0].Metadata.FileType)
	assert.Nil(t, docs[0].Metadata.PageCount)
}

func TestExtractBatch_PlainTextTruncated(t *testing.T) {
	e := newTestExtractor(&fakeVision{})

	long := strings.Repeat("a", 3000)
	docs := e.ExtractBatch(context.Background(), []models.RawUpload{
		upload("long.txt", []byte(long)),
	})

	require.Len(t, docs, 1)
	assert.Len(t, docs[0].Text, maxPlainTextChars)
}

func TestExtractBatch_InvalidUTF8YieldsEmptyText(t *testing.T) {
	e := newTestExtractor(&fakeVision{})

	docs := e.ExtractBatch(context.Background(), []models.RawUpload{
		upload("binary.bin", []byte{0xff, 0xfe, 0x00, 0x81}),
	})

	require.Len(t, docs, 1)
	assert.Empty(t, docs[0].Text)
	assert.Equal(t, "unk", docs[0].Metadata.Language)
}

func TestExtractBatch_Docx(t *testing.T) {
	e := newTestExtractor(&fakeVision{})

	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>
<w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>
</w:body>
</w:document>`
	appXML := `<?xml version="1.0" encoding="UTF-8"?>
<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">
<Pages>4</Pages>
</Properties>`

	docs := e.ExtractBatch(context.Background(), []models.RawUpload{
		upload("report.docx", buildDocx(docXML, appXML)),
	})

	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Text, "First paragraph")
	assert.Contains(t, docs[0].Text, "Second paragraph")
	require.NotNil(t, docs[0].Metadata.PageCount)
	assert.Equal(t, 4, *docs[0].Metadata.PageCount)
}

func TestExtractBatch_DocxParagraphLimit(t *testing.T) {
	e := newTestExtractor(&fakeVision{})

	var body strings.Builder
	for i := 0; i < maxDocxParagraphs+10; i++ {
		fmt.Fprintf(&body, "<w:p><w:r><w:t>para%d</w:t></w:r></w:p>", i)
	}
	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>` + body.String() + `</w:body></w:document>`

	docs := e.ExtractBatch(context.Background(), []models.RawUpload{
		upload("big.docx", buildDocx(docXML, "")),
	})

	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Text, fmt.Sprintf("para%d", maxDocxParagraphs-1))
	assert.NotContains(t, docs[0].Text, fmt.Sprintf("para%d", maxDocxParagraphs))
}

func TestExtractBatch_CorruptDocxDegradesToEmpty(t *testing.T) {
	e := newTestExtractor(&fakeVision{})

	docs := e.ExtractBatch(context.Background(), []models.RawUpload{
		upload("broken.docx", []byte("not a zip at all")),
	})

	require.Len(t, docs, 1)
	assert.Empty(t, docs[0].Text)
}

func TestExtractBatch_CorruptPDFDegradesToEmpty(t *testing.T) {
	e := newTestExtractor(&fakeVision{})

	docs := e.ExtractBatch(context.Background(), []models.RawUpload{
		upload("broken.pdf", []byte("%PDF-garbage")),
	})

	require.Len(t, docs, 1)
	assert.Empty(t, docs[0].Text)
	assert.Nil(t, docs[0].Metadata.PageCount)
}

func TestExtractBatch_ImageUsesVisionDescription(t *testing.T) {
	vision := &fakeVision{description: "a cat sitting on a desk"}
	e := newTestExtractor(vision)

	docs := e.ExtractBatch(context.Background(), []models.RawUpload{
		upload("cat.png", []byte("fake image bytes")),
	})

	require.Len(t, docs, 1)
	assert.Equal(t, "a cat sitting on a desk", docs[0].Text)
	assert.Equal(t, "image/png", vision.gotMIME)
}

func TestExtractBatch_VisionFailureDegradesToEmpty(t *testing.T) {
	vision := &fakeVision{err: errors.New("provider down")}
	e := newTestExtractor(vision)

	docs := e.ExtractBatch(context.Background(), []models.RawUpload{
		upload("cat.jpg", []byte("fake image bytes")),
	})

	require.Len(t, docs, 1)
	assert.Empty(t, docs[0].Text)
	assert.Equal(t, "unk", docs[0].Metadata.Language)
}

func TestExtractBatch_PreservesOrder(t *testing.T) {
	e := newTestExtractor(&fakeVision{description: "picture"})

	uploads := []models.RawUpload{
		upload("1.txt", []byte("first")),
		upload("2.png", []byte("image")),
		upload("3.txt", []byte("third")),
		upload("4.txt", []byte("fourth")),
	}
	docs := e.ExtractBatch(context.Background(), uploads)

	require.Len(t, docs, 4)
	for i, up := range uploads {
		assert.Equal(t, up.Filename, docs[i].Filename)
	}
	assert.Equal(t, "first", docs[0].Text)
	assert.Equal(t, "picture", docs[1].Text)
}

func TestExtractBatch_MetadataFields(t *testing.T) {
	e := newTestExtractor(&fakeVision{})

	content := bytes.Repeat([]byte("x"), 4096)
	docs := e.ExtractBatch(context.Background(), []models.RawUpload{
		upload("data.txt", content),
	})

	require.Len(t, docs, 1)
	assert.Equal(t, int64(4), docs[0].Metadata.SizeKB)
	assert.Equal(t, ".txt", docs[0].Metadata.FileType)
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", "unk"},
		{"too short", "hello", "unk"},
		{"english", strings.Repeat("the quick brown fox jumps over the lazy dog ", 3), "eng"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectLanguage(tt.text))
		})
	}
}
