package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"artforge/services/watermark-api/internal/config"
	"artforge/services/watermark-api/internal/domain/watermark"
	"artforge/services/watermark-api/internal/infrastructure/metrics"
	"artforge/services/watermark-api/internal/infrastructure/observability"
	"artforge/services/watermark-api/internal/infrastructure/storage"
	"artforge/services/watermark-api/internal/infrastructure/workspace"
	"artforge/services/watermark-api/utils/mediaid"
)

// ProxyFetchError means the server-side re-fetch of an original URL failed.
// Maps to 502 at the HTTP boundary.
type ProxyFetchError struct {
	Err error
}

func (e *ProxyFetchError) Error() string {
	return fmt.Sprintf("proxy original media: %v", e.Err)
}

func (e *ProxyFetchError) Unwrap() error { return e.Err }

// Store defines the persistence operations needed by the service.
type Store interface {
	Save(ctx context.Context, id string, binary []byte, meta storage.Meta) error
	LoadMedia(ctx context.Context, id string) (*storage.Record, error)
	LoadOriginalURL(ctx context.Context, id string) (string, error)
	Health(ctx context.Context) error
}

// ImageCompositor burns the watermark into a still image fetched from a URL.
type ImageCompositor interface {
	WatermarkImage(ctx context.Context, sourceURL string) ([]byte, error)
}

// VideoCompositor burns the watermark into a local video file.
type VideoCompositor interface {
	WatermarkVideo(ctx context.Context, inputPath, outputPath string) error
}

// Service orchestrates the watermark pipeline and delivery resolution.
type Service struct {
	cfg        *config.Config
	store      Store
	images     ImageCompositor
	videos     VideoCompositor
	workspaces *workspace.Manager
	httpClient *http.Client
	log        zerolog.Logger
}

func NewService(
	cfg *config.Config,
	store Store,
	images ImageCompositor,
	videos VideoCompositor,
	workspaces *workspace.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		cfg:        cfg,
		store:      store,
		images:     images,
		videos:     videos,
		workspaces: workspaces,
		httpClient: &http.Client{
			Timeout: cfg.RemoteFetchTimeout,
		},
		log: log.With().Str("component", "media-service").Logger(),
	}
}

// Process runs the watermark pipeline for one generation result: composite,
// then persist under a freshly minted id. Persistence is only attempted after
// compositing succeeds; a failed composite never produces a record.
//
// When compositing itself fails and the fallback policy is enabled, the
// original unwatermarked URL is returned with StatusFellBackToOriginal
// instead of an error (availability over watermark guarantee).
func (s *Service) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("unknown media kind %q", req.Kind)
	}
	if _, err := url.ParseRequestURI(req.SourceURL); err != nil {
		return nil, fmt.Errorf("invalid source url: %w", err)
	}

	id := mediaid.New()
	ctx, span := observability.StartPipelineSpan(ctx, id, string(req.Kind), req.SourceURL)
	defer span.End()

	var (
		binary []byte
		meta   storage.Meta
		err    error
	)
	switch req.Kind {
	case KindImage:
		binary, meta, err = s.processImage(ctx, req.SourceURL)
	case KindVideo:
		binary, meta, err = s.processVideo(ctx, req.SourceURL)
	}
	if err != nil {
		observability.RecordError(span, err)
		if watermark.IsCompositeFailure(err) && s.cfg.FallbackToOriginal {
			s.log.Warn().
				Str("id", id).
				Str("kind", string(req.Kind)).
				Err(err).
				Msg("compositing failed, falling back to unwatermarked original")
			metrics.FallbacksTotal.WithLabelValues(string(req.Kind)).Inc()
			return &ProcessResult{
				Status:      StatusFellBackToOriginal,
				MediaURL:    req.SourceURL,
				OriginalURL: req.SourceURL,
			}, nil
		}
		s.log.Error().Str("id", id).Str("kind", string(req.Kind)).Err(err).Msg("watermark pipeline failed")
		return nil, err
	}

	persistCtx, persistSpan := observability.StartStageSpan(ctx, "persist")
	err = s.store.Save(persistCtx, id, binary, meta)
	persistSpan.End()
	if err != nil {
		observability.RecordError(span, err)
		s.log.Error().Str("id", id).Err(err).Msg("persist watermarked media failed")
		return nil, err
	}

	s.log.Info().
		Str("id", id).
		Str("kind", string(req.Kind)).
		Int("bytes", len(binary)).
		Msg("media watermarked and persisted")
	return &ProcessResult{
		ID:          id,
		Status:      StatusWatermarked,
		MediaURL:    s.cfg.MediaURL(id),
		OriginalURL: req.SourceURL,
	}, nil
}

func (s *Service) processImage(ctx context.Context, sourceURL string) ([]byte, storage.Meta, error) {
	ctx, span := observability.StartStageSpan(ctx, "composite.image")
	defer span.End()

	binary, err := s.images.WatermarkImage(ctx, sourceURL)
	if err != nil {
		observability.RecordError(span, err)
		return nil, storage.Meta{}, err
	}
	return binary, storage.Meta{
		OriginalURL: sourceURL,
		MimeType:    "image/png",
		Extension:   "png",
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (s *Service) processVideo(ctx context.Context, sourceURL string) ([]byte, storage.Meta, error) {
	ws, err := s.workspaces.Acquire()
	if err != nil {
		return nil, storage.Meta{}, err
	}
	defer ws.Cleanup()

	inputPath := ws.Path("input" + sourceExtension(sourceURL, ".mp4"))
	outputPath := ws.Path("output.mp4")

	fetchCtx, fetchSpan := observability.StartStageSpan(ctx, "fetch")
	err = s.downloadToFile(fetchCtx, sourceURL, inputPath)
	fetchSpan.End()
	if err != nil {
		return nil, storage.Meta{}, err
	}

	compositeCtx, compositeSpan := observability.StartStageSpan(ctx, "composite.video")
	err = s.videos.WatermarkVideo(compositeCtx, inputPath, outputPath)
	if err != nil {
		observability.RecordError(compositeSpan, err)
	}
	compositeSpan.End()
	if err != nil {
		return nil, storage.Meta{}, err
	}

	binary, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, storage.Meta{}, fmt.Errorf("read composited video: %w", err)
	}

	mime := "video/mp4"
	if detected := mimetype.Detect(binary); detected.Is("video/mp4") || detected.Is("video/quicktime") {
		mime = detected.String()
	}
	return binary, storage.Meta{
		OriginalURL: sourceURL,
		MimeType:    mime,
		Extension:   "mp4",
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// Serve returns the persisted watermarked record for the locked delivery
// path. storage.ErrNotFound propagates for unknown or expired ids.
func (s *Service) Serve(ctx context.Context, id string) (*storage.Record, error) {
	return s.store.LoadMedia(ctx, id)
}

// OriginalURL resolves the stored original source URL for the unlock flow.
// This accessor and DownloadOriginal are the only paths through which the
// original URL ever leaves the service.
func (s *Service) OriginalURL(ctx context.Context, id string) (string, error) {
	return s.store.LoadOriginalURL(ctx, id)
}

// DownloadOriginal re-fetches the original media server-side for streaming
// back as an attachment. Proxying instead of redirecting keeps the raw
// provider URL off the client and survives provider-side URL expiry only as a
// 502 here rather than a broken redirect.
func (s *Service) DownloadOriginal(ctx context.Context, id string) (io.ReadCloser, string, string, error) {
	originalURL, err := s.store.LoadOriginalURL(ctx, id)
	if err != nil {
		return nil, "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, originalURL, nil)
	if err != nil {
		metrics.OriginalDownloadsTotal.WithLabelValues("error").Inc()
		return nil, "", "", &ProxyFetchError{Err: err}
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.OriginalDownloadsTotal.WithLabelValues("error").Inc()
		return nil, "", "", &ProxyFetchError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		metrics.OriginalDownloadsTotal.WithLabelValues("error").Inc()
		return nil, "", "", &ProxyFetchError{Err: fmt.Errorf("upstream status %s", resp.Status)}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	filename := fmt.Sprintf("artforge-original-%s%s", id, sourceExtension(originalURL, ".bin"))

	metrics.OriginalDownloadsTotal.WithLabelValues("ok").Inc()
	return resp.Body, contentType, filename, nil
}

// Health reports whether the storage backend is usable.
func (s *Service) Health(ctx context.Context) error {
	return s.store.Health(ctx)
}

func (s *Service) downloadToFile(ctx context.Context, sourceURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return &watermark.SourceFetchError{URL: sourceURL, Err: err}
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &watermark.SourceFetchError{URL: sourceURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &watermark.SourceFetchError{URL: sourceURL, Status: resp.StatusCode}
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("stage source video: %w", err)
	}
	defer dest.Close()

	written, err := io.Copy(dest, io.LimitReader(resp.Body, s.cfg.MaxMediaBytes+1))
	if err != nil {
		return &watermark.SourceFetchError{URL: sourceURL, Err: err}
	}
	if written > s.cfg.MaxMediaBytes {
		return &watermark.SourceFetchError{URL: sourceURL, Err: fmt.Errorf("source exceeds %d bytes", s.cfg.MaxMediaBytes)}
	}
	return nil
}

// sourceExtension extracts a file extension from a URL path, falling back
// when the provider URL has none.
func sourceExtension(rawURL, fallback string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	if ext := path.Ext(parsed.Path); ext != "" && len(ext) <= 6 {
		return ext
	}
	return fallback
}
