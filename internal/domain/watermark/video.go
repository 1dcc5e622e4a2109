package watermark

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"artforge/services/watermark-api/internal/config"
	"artforge/services/watermark-api/internal/infrastructure/metrics"
)

// Overlay geometry for video: the watermark is scaled to 12% of the input
// video width (aspect preserved) and inset 32 px from the bottom-left corner
// of every frame.
const (
	videoOverlayRatio = 0.12
	videoOverlayInset = 32
)

// ProcessRunner executes the external compositing binary. Satisfied by
// *ffmpeg.Runner.
type ProcessRunner interface {
	Run(ctx context.Context, args ...string) error
}

// VideoCompositor overlays the watermark onto every frame of a local video
// file through an external ffmpeg process.
type VideoCompositor struct {
	runner    ProcessRunner
	assetPath string
	timeout   time.Duration
	log       zerolog.Logger
}

// NewVideoCompositor builds a compositor bound to the given process runner.
func NewVideoCompositor(cfg *config.Config, runner ProcessRunner, log zerolog.Logger) *VideoCompositor {
	return &VideoCompositor{
		runner:    runner,
		assetPath: cfg.AssetPath,
		timeout:   cfg.FFmpegTimeout,
		log:       log.With().Str("component", "video-compositor").Logger(),
	}
}

// WatermarkVideo composites the watermark onto inputPath and writes the
// result to outputPath. Video is re-encoded as H.264 with 8-bit 4:2:0 chroma
// subsampling for maximum playback compatibility; the audio stream is copied
// unmodified. The caller owns both paths and their cleanup.
func (c *VideoCompositor) WatermarkVideo(ctx context.Context, inputPath, outputPath string) error {
	start := time.Now()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := buildOverlayArgs(inputPath, c.assetPath, outputPath)
	if err := c.runner.Run(ctx, args...); err != nil {
		metrics.CompositesTotal.WithLabelValues("video", "process_error").Inc()
		return err
	}

	metrics.CompositesTotal.WithLabelValues("video", "ok").Inc()
	metrics.CompositeDuration.WithLabelValues("video").Observe(time.Since(start).Seconds())
	c.log.Debug().
		Str("input", inputPath).
		Str("output", outputPath).
		Dur("elapsed", time.Since(start)).
		Msg("video watermarked")
	return nil
}

// buildOverlayArgs assembles the ffmpeg invocation. scale2ref sizes the
// watermark against the main video width while ow*ih/iw keeps the
// watermark's own aspect ratio; the overlay y expression pins it to the
// bottom edge.
func buildOverlayArgs(inputPath, assetPath, outputPath string) []string {
	filter := fmt.Sprintf(
		"[1:v][0:v]scale2ref=w=main_w*%g:h=ow*ih/iw[wm][base];[base][wm]overlay=x=%d:y=H-h-%d",
		videoOverlayRatio, videoOverlayInset, videoOverlayInset,
	)
	return []string{
		"-i", inputPath,
		"-i", assetPath,
		"-filter_complex", filter,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
		"-movflags", "+faststart",
		"-y",
		outputPath,
	}
}
