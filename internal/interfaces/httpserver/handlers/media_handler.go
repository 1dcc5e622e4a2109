package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"artforge/services/watermark-api/internal/config"
	domain "artforge/services/watermark-api/internal/domain/media"
	"artforge/services/watermark-api/internal/interfaces/httpserver/responses"
)

// MediaHandler exposes the watermark pipeline and delivery endpoints.
type MediaHandler struct {
	cfg     *config.Config
	service *domain.Service
	log     zerolog.Logger
}

func NewMediaHandler(cfg *config.Config, service *domain.Service, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		cfg:     cfg,
		service: service,
		log:     log.With().Str("component", "media-handler").Logger(),
	}
}

type unlockResponse struct {
	CleanURL string `json:"cleanUrl"`
}

// Process runs the watermark pipeline for a finished generation. Called by
// the generation routes once the provider hands back a media URL.
func (h *MediaHandler) Process(c *gin.Context) {
	var req domain.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Process(c.Request.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Str("kind", string(req.Kind)).Msg("process failed")
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Serve streams the persisted watermarked bytes. This is the locked delivery
// path; the response never carries the original URL.
func (h *MediaHandler) Serve(c *gin.Context) {
	id := c.Param("id")

	record, err := h.service.Serve(c.Request.Context(), id)
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	c.Data(http.StatusOK, record.Meta.MimeType, record.Binary)
}

// Unlock returns the original source URL once the caller's rewarded-ad flow
// has completed. The gate decision itself lives in the calling layer; this
// endpoint is deliberately the only JSON body that ever contains the URL.
func (h *MediaHandler) Unlock(c *gin.Context) {
	id := c.Param("id")

	originalURL, err := h.service.OriginalURL(c.Request.Context(), id)
	if err != nil {
		responses.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, unlockResponse{CleanURL: originalURL})
}

// DownloadOriginal proxies a server-side fetch of the original media and
// streams it back with an attachment disposition, so the provider URL is
// never exposed to the browser.
func (h *MediaHandler) DownloadOriginal(c *gin.Context) {
	id := c.Query("id")

	reader, contentType, filename, err := h.service.DownloadOriginal(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("download original failed")
		responses.HandleError(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("stream original failed")
	}
}
