//go:build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"artforge/services/watermark-api/internal/config"
	domain "artforge/services/watermark-api/internal/domain/media"
	"artforge/services/watermark-api/internal/domain/watermark"
	"artforge/services/watermark-api/internal/infrastructure/ffmpeg"
	"artforge/services/watermark-api/internal/infrastructure/logger"
	"artforge/services/watermark-api/internal/infrastructure/storage"
	"artforge/services/watermark-api/internal/infrastructure/workspace"
	"artforge/services/watermark-api/internal/interfaces/httpserver"
)

var pipelineSet = wire.NewSet(
	storage.NewFileStore,
	wire.Bind(new(domain.Store), new(*storage.FileStore)),
	newRunner,
	watermark.NewImageCompositor,
	wire.Bind(new(domain.ImageCompositor), new(*watermark.ImageCompositor)),
	watermark.NewVideoCompositor,
	wire.Bind(new(domain.VideoCompositor), new(*watermark.VideoCompositor)),
	newWorkspaceManager,
	domain.NewService,
)

// BuildApplication assembles the watermark API with Wire.
func BuildApplication() (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		pipelineSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newRunner(cfg *config.Config, log zerolog.Logger) watermark.ProcessRunner {
	return ffmpeg.NewRunner(cfg.FFmpegPath, log)
}

func newWorkspaceManager(cfg *config.Config, log zerolog.Logger) *workspace.Manager {
	return workspace.NewManager(cfg.WorkspaceRoot, log)
}
