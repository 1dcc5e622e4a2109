package api

import (
	"github.com/gin-gonic/gin"

	"artforge/services/watermark-api/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates route registration under the /api prefix.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all routes under the /api prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/api")
	group.POST("/process", r.handlers.Media.Process)
	group.GET("/media/:id", r.handlers.Media.Serve)
	group.POST("/media/:id/unlock", r.handlers.Media.Unlock)
	group.GET("/download-original", r.handlers.Media.DownloadOriginal)
}
