package watermark

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"artforge/services/watermark-api/internal/config"
	"artforge/services/watermark-api/internal/infrastructure/metrics"
)

// overlayWidthRatio is the watermark's rendered width relative to the source
// image width. The base image itself is never resized.
const overlayWidthRatio = 0.6

// ImageCompositor burns the watermark into still images entirely in-process.
type ImageCompositor struct {
	assetPath  string
	maxBytes   int64
	httpClient *http.Client
	log        zerolog.Logger
}

// NewImageCompositor builds a compositor reading the watermark asset from
// cfg.AssetPath. The asset is loaded fresh per operation.
func NewImageCompositor(cfg *config.Config, log zerolog.Logger) *ImageCompositor {
	return &ImageCompositor{
		assetPath: cfg.AssetPath,
		maxBytes:  cfg.MaxMediaBytes,
		httpClient: &http.Client{
			Timeout: cfg.RemoteFetchTimeout,
		},
		log: log.With().Str("component", "image-compositor").Logger(),
	}
}

// WatermarkImage fetches the source image, composites the watermark at 60% of
// the source width anchored bottom-center, and returns PNG bytes. The output
// always has the source's pixel dimensions regardless of input format.
func (c *ImageCompositor) WatermarkImage(ctx context.Context, sourceURL string) ([]byte, error) {
	start := time.Now()

	data, err := c.fetch(ctx, sourceURL)
	if err != nil {
		metrics.CompositesTotal.WithLabelValues("image", "fetch_error").Inc()
		return nil, err
	}

	if mime := mimetype.Detect(data); !strings.HasPrefix(mime.String(), "image/") {
		metrics.CompositesTotal.WithLabelValues("image", "decode_error").Inc()
		return nil, &DecodeError{What: "source", Err: fmt.Errorf("payload is %s, not an image", mime.String())}
	}

	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		c.log.Error().Err(err).Int("bytes", len(data)).Msg("source image failed to decode")
		metrics.CompositesTotal.WithLabelValues("image", "decode_error").Inc()
		return nil, &DecodeError{What: "source", Err: err}
	}

	asset, err := imaging.Open(c.assetPath)
	if err != nil {
		metrics.CompositesTotal.WithLabelValues("image", "decode_error").Inc()
		return nil, &DecodeError{What: "watermark asset", Err: err}
	}

	out, err := composite(src, asset)
	if err != nil {
		metrics.CompositesTotal.WithLabelValues("image", "composite_error").Inc()
		return nil, err
	}

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, out, imaging.PNG); err != nil {
		metrics.CompositesTotal.WithLabelValues("image", "composite_error").Inc()
		return nil, &CompositeError{Err: err}
	}

	metrics.CompositesTotal.WithLabelValues("image", "ok").Inc()
	metrics.CompositeDuration.WithLabelValues("image").Observe(time.Since(start).Seconds())
	c.log.Debug().
		Int("width", src.Bounds().Dx()).
		Int("height", src.Bounds().Dy()).
		Dur("elapsed", time.Since(start)).
		Msg("image watermarked")
	return buf.Bytes(), nil
}

// composite scales the watermark to the overlay ratio of the source width,
// preserving its aspect ratio, and blends it onto the source anchored to the
// bottom edge and horizontally centered.
func composite(src, asset image.Image) (*image.NRGBA, error) {
	srcW := src.Bounds().Dx()
	srcH := src.Bounds().Dy()
	if srcW == 0 || srcH == 0 {
		return nil, &CompositeError{Err: fmt.Errorf("source has zero dimension %dx%d", srcW, srcH)}
	}

	overlayW := int(math.Round(overlayWidthRatio * float64(srcW)))
	if overlayW < 1 {
		overlayW = 1
	}
	scaled := imaging.Resize(asset, overlayW, 0, imaging.Lanczos)
	if scaled.Bounds().Dx() == 0 || scaled.Bounds().Dy() == 0 {
		return nil, &CompositeError{Err: fmt.Errorf("watermark scaled to zero size")}
	}

	pos := image.Pt((srcW-scaled.Bounds().Dx())/2, srcH-scaled.Bounds().Dy())
	return imaging.Overlay(src, scaled, pos, 1.0), nil
}

func (c *ImageCompositor) fetch(ctx context.Context, sourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, &SourceFetchError{URL: sourceURL, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &SourceFetchError{URL: sourceURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &SourceFetchError{URL: sourceURL, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, &SourceFetchError{URL: sourceURL, Err: err}
	}
	if int64(len(data)) > c.maxBytes {
		return nil, &SourceFetchError{URL: sourceURL, Err: fmt.Errorf("source exceeds %d bytes", c.maxBytes)}
	}
	return data, nil
}
