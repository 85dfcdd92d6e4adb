package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/doc-organizer/internal/models"
	"github.com/feichai0017/doc-organizer/internal/service/organize"
	"github.com/feichai0017/doc-organizer/pkg/logger"
	"github.com/feichai0017/doc-organizer/pkg/queue"
)

const archiveContentType = "application/x-zip-compressed"

type DocumentHandler struct {
	service       organize.Organizer
	maxUploadSize int64
	logger        logger.Logger
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewDocumentHandler(service organize.Organizer, maxUploadSize int64, logger logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		service:       service,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// OrganizeDocuments accepts a multipart batch under the "files" field and
// responds with the organized zip bundle. The request id and dataset summary
// travel in response headers so the body can stay a plain attachment.
func (h *DocumentHandler) OrganizeDocuments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid form data", err)
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		h.handleError(c, http.StatusBadRequest, "No files provided", nil)
		return
	}

	uploads := make([]models.RawUpload, 0, len(files))
	for _, header := range files {
		if header.Size > h.maxUploadSize {
			h.handleError(c, http.StatusBadRequest, "File exceeds upload size limit", nil)
			return
		}

		content, err := readUpload(header)
		if err != nil {
			h.handleError(c, http.StatusBadRequest, "Failed to read uploaded file", err)
			return
		}

		uploads = append(uploads, models.RawUpload{
			Filename: header.Filename,
			Content:  content,
			Size:     header.Size,
			FileType: strings.ToLower(filepath.Ext(header.Filename)),
		})
	}

	result, err := h.service.OrganizeBatch(c.Request.Context(), uploads)
	if err != nil {
		if errors.Is(err, organize.ErrEmptyBatch) {
			h.handleError(c, http.StatusBadRequest, "No files provided", err)
			return
		}
		h.handleError(c, http.StatusInternalServerError, "Failed to organize documents", err)
		return
	}

	c.Header("X-Request-Id", result.RequestID)
	c.Header("X-Dataset-Summary", sanitizeHeader(result.Summary))
	c.Header("Content-Disposition", `attachment; filename="organized_documents.zip"`)
	c.Data(http.StatusOK, archiveContentType, result.Archive)
}

// DownloadArchive streams a previously organized bundle by request id.
func (h *DocumentHandler) DownloadArchive(c *gin.Context) {
	requestID := c.Param("requestId")

	reader, err := h.service.GetArchive(c.Request.Context(), requestID)
	if err != nil {
		h.handleError(c, http.StatusNotFound, "Archive not found", err)
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", `attachment; filename="`+requestID+`.zip"`)
	c.Header("Content-Type", archiveContentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		h.logger.Error("Failed to stream archive",
			logger.String("requestId", requestID),
			logger.Error(err),
		)
	}
}

// GetStatus reports the metadata persistence status of a request.
func (h *DocumentHandler) GetStatus(c *gin.Context) {
	requestID := c.Param("requestId")

	status, err := h.service.GetStatus(c.Request.Context(), requestID)
	if err != nil {
		if errors.Is(err, queue.ErrStatusNotFound) {
			h.handleError(c, http.StatusNotFound, "Request not found", err)
			return
		}
		h.handleError(c, http.StatusInternalServerError, "Failed to fetch status", err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *DocumentHandler) handleError(c *gin.Context, status int, message string, err error) {
	fields := []logger.Field{logger.String("message", message)}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	h.logger.Error("Request failed", fields...)

	resp := ErrorResponse{Error: http.StatusText(status), Message: message}
	c.JSON(status, resp)
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// sanitizeHeader keeps model output from breaking the header value.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}
