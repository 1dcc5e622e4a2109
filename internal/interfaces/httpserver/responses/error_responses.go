package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"artforge/services/watermark-api/internal/domain/media"
	"artforge/services/watermark-api/internal/domain/watermark"
	"artforge/services/watermark-api/internal/infrastructure/storage"
)

// ErrorResponse is the user-safe error envelope. Internal detail stays in the
// logs; clients only see a small generic message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleError maps domain errors onto HTTP statuses with user-safe messages.
func HandleError(reqCtx *gin.Context, err error) {
	status, message := classify(err)
	reqCtx.AbortWithStatusJSON(status, ErrorResponse{Error: message})
}

func classify(err error) (int, string) {
	if errors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound, "media not found"
	}

	var proxyErr *media.ProxyFetchError
	if errors.As(err, &proxyErr) {
		return http.StatusBadGateway, "failed to fetch original media"
	}

	var fetchErr *watermark.SourceFetchError
	if errors.As(err, &fetchErr) {
		return http.StatusUnprocessableEntity, "failed to process media"
	}

	var decodeErr *watermark.DecodeError
	if errors.As(err, &decodeErr) {
		return http.StatusUnprocessableEntity, "failed to process media"
	}

	return http.StatusInternalServerError, "internal error"
}
