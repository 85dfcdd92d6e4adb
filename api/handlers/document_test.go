package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/doc-organizer/internal/models"
	"github.com/feichai0017/doc-organizer/internal/service/organize"
	"github.com/feichai0017/doc-organizer/pkg/logger"
	"github.com/feichai0017/doc-organizer/pkg/queue"
)

type fakeOrganizer struct {
	result  *organize.Result
	err     error
	uploads []models.RawUpload
}

func (f *fakeOrganizer) OrganizeBatch(ctx context.Context, uploads []models.RawUpload) (*organize.Result, error) {
	f.uploads = uploads
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeOrganizer) GetArchive(ctx context.Context, requestID string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(bytes.NewReader(f.result.Archive)), nil
}

func (f *fakeOrganizer) GetStatus(ctx context.Context, requestID string) (*queue.RequestStatus, error) {
	if f.err != nil {
		return nil, queue.ErrStatusNotFound
	}
	return &queue.RequestStatus{RequestID: requestID, Status: queue.StatusCompleted}, nil
}

func (f *fakeOrganizer) CleanupArchives(ctx context.Context) error { return nil }

func newTestRouter(org organize.Organizer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewDocumentHandler(org, 1024*1024, logger.NewTestLogger())
	r.POST("/organize", h.OrganizeDocuments)
	r.GET("/archive/:requestId", h.DownloadArchive)
	r.GET("/status/:requestId", h.GetStatus)
	return r
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	for name, content := range files {
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		fw.Write([]byte(content))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestOrganizeDocuments_ReturnsArchive(t *testing.T) {
	org := &fakeOrganizer{result: &organize.Result{
		RequestID: "req-123",
		Summary:   "two plain notes",
		Archive:   []byte("zip bytes"),
	}}
	r := newTestRouter(org)

	body, contentType := multipartBody(t, map[string]string{
		"a.txt": "alpha",
		"b.txt": "bravo",
	})
	req := httptest.NewRequest(http.MethodPost, "/organize", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "two plain notes", rec.Header().Get("X-Dataset-Summary"))
	assert.Equal(t, archiveContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, "zip bytes", rec.Body.String())
	assert.Len(t, org.uploads, 2)
}

func TestOrganizeDocuments_NoFiles(t *testing.T) {
	r := newTestRouter(&fakeOrganizer{})

	body, contentType := multipartBody(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/organize", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrganizeDocuments_ServiceFailure(t *testing.T) {
	r := newTestRouter(&fakeOrganizer{err: errors.New("boom")})

	body, contentType := multipartBody(t, map[string]string{"a.txt": "alpha"})
	req := httptest.NewRequest(http.MethodPost, "/organize", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestOrganizeDocuments_SummaryHeaderSanitized(t *testing.T) {
	org := &fakeOrganizer{result: &organize.Result{
		RequestID: "req-1",
		Summary:   "line one\nline two\r\n",
		Archive:   []byte("z"),
	}}
	r := newTestRouter(org)

	body, contentType := multipartBody(t, map[string]string{"a.txt": "alpha"})
	req := httptest.NewRequest(http.MethodPost, "/organize", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "line one line two", rec.Header().Get("X-Dataset-Summary"))
}

func TestDownloadArchive(t *testing.T) {
	org := &fakeOrganizer{result: &organize.Result{Archive: []byte("stored zip")}}
	r := newTestRouter(org)

	req := httptest.NewRequest(http.MethodGet, "/archive/req-123", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stored zip", rec.Body.String())
}

func TestGetStatus(t *testing.T) {
	org := &fakeOrganizer{result: &organize.Result{}}
	r := newTestRouter(org)

	req := httptest.NewRequest(http.MethodGet, "/status/req-9", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), queue.StatusCompleted)
}

func TestGetStatus_NotFound(t *testing.T) {
	r := newTestRouter(&fakeOrganizer{err: errors.New("nope")})

	req := httptest.NewRequest(http.MethodGet, "/status/unknown", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadArchive_NotFound(t *testing.T) {
	r := newTestRouter(&fakeOrganizer{err: errors.New("missing")})

	req := httptest.NewRequest(http.MethodGet, "/archive/unknown", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
