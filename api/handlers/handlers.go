package handlers

import (
	"github.com/feichai0017/doc-organizer/internal/service/organize"
	"github.com/feichai0017/doc-organizer/pkg/logger"
)

type Handlers struct {
	Document *DocumentHandler
}

func NewHandlers(
	organizer organize.Organizer,
	maxUploadSize int64,
	logger logger.Logger,
) *Handlers {
	return &Handlers{
		Document: NewDocumentHandler(organizer, maxUploadSize, logger),
	}
}
