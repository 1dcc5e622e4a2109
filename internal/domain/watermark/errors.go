package watermark

import (
	"errors"
	"fmt"

	"artforge/services/watermark-api/internal/infrastructure/ffmpeg"
)

// SourceFetchError means the original media could not be fetched from its
// (often ephemeral) provider URL. Never retried inside the pipeline.
type SourceFetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *SourceFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch source media: unexpected status %d", e.Status)
	}
	return fmt.Sprintf("fetch source media: %v", e.Err)
}

func (e *SourceFetchError) Unwrap() error { return e.Err }

// DecodeError means the source or watermark bytes are not a valid raster
// image.
type DecodeError struct {
	What string // "source" or "watermark asset"
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// CompositeError means the in-process compositing or re-encoding step failed.
type CompositeError struct {
	Err error
}

func (e *CompositeError) Error() string {
	return fmt.Sprintf("composite watermark: %v", e.Err)
}

func (e *CompositeError) Unwrap() error { return e.Err }

// IsCompositeFailure reports whether err is a compositing failure eligible
// for the fall-back-to-original policy: an in-process composite error, or the
// ffmpeg subprocess failing to spawn or exiting non-zero. Fetch and decode
// failures are not eligible; with no usable source there is nothing to fall
// back to serving.
func IsCompositeFailure(err error) bool {
	var composite *CompositeError
	var spawn *ffmpeg.SpawnError
	var exit *ffmpeg.ExitError
	return errors.As(err, &composite) || errors.As(err, &spawn) || errors.As(err, &exit)
}
