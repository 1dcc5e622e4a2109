package handlers

import (
	"github.com/rs/zerolog"

	"artforge/services/watermark-api/internal/config"
	domain "artforge/services/watermark-api/internal/domain/media"
)

// Provider bundles all HTTP handlers.
type Provider struct {
	Media *MediaHandler
}

func NewProvider(cfg *config.Config, service *domain.Service, log zerolog.Logger) *Provider {
	return &Provider{
		Media: NewMediaHandler(cfg, service, log),
	}
}
