package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"artforge/services/watermark-api/internal/config"
	domain "artforge/services/watermark-api/internal/domain/media"
	"artforge/services/watermark-api/internal/domain/watermark"
	"artforge/services/watermark-api/internal/infrastructure/ffmpeg"
	"artforge/services/watermark-api/internal/infrastructure/logger"
	"artforge/services/watermark-api/internal/infrastructure/observability"
	"artforge/services/watermark-api/internal/infrastructure/storage"
	"artforge/services/watermark-api/internal/infrastructure/workspace"
	"artforge/services/watermark-api/internal/interfaces/httpserver"
)

// Application ties the HTTP server to its lifecycle.
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	store, err := storage.NewFileStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize media store")
	}

	runner := ffmpeg.NewRunner(cfg.FFmpegPath, log)
	workspaces := workspace.NewManager(cfg.WorkspaceRoot, log)
	imageCompositor := watermark.NewImageCompositor(cfg, log)
	videoCompositor := watermark.NewVideoCompositor(cfg, runner, log)

	mediaService := domain.NewService(cfg, store, imageCompositor, videoCompositor, workspaces, log)

	httpServer := httpserver.New(cfg, log, mediaService)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
