package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/feichai0017/doc-organizer/api/handlers"
	"github.com/feichai0017/doc-organizer/api/middleware"
)

// SetupRoutes wires all HTTP routes.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers) {
	r.Use(middleware.CORS())

	v1 := r.Group("/api/v1")

	docs := v1.Group("/documents")
	{
		docs.POST("/organize", h.Document.OrganizeDocuments)
		docs.GET("/archive/:requestId", h.Document.DownloadArchive)
		docs.GET("/status/:requestId", h.Document.GetStatus)
	}
}
