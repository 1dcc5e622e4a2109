package media

// Kind selects the compositing pipeline for a generation result.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Valid reports whether the kind names a known pipeline.
func (k Kind) Valid() bool {
	return k == KindImage || k == KindVideo
}

// ProcessRequest is the contract with the generation routes: one finished
// provider URL, one pipeline invocation.
type ProcessRequest struct {
	SourceURL string `json:"source_url" binding:"required"`
	Kind      Kind   `json:"kind" binding:"required"`
}

// Status is the pipeline outcome, kept as an explicit value so the
// fall-back-to-original trade-off is visible to callers instead of being
// swallowed in error handling.
type Status string

const (
	// StatusWatermarked means the watermarked artifact was persisted and is
	// served from this service.
	StatusWatermarked Status = "watermarked"
	// StatusFellBackToOriginal means compositing failed and the original
	// unwatermarked URL is served instead. Nothing was persisted.
	StatusFellBackToOriginal Status = "fell_back_to_original"
)

// ProcessResult is returned to the generation route. MediaURL is what the
// client embeds; OriginalURL is returned only so the product's unlock flow
// can use it later.
type ProcessResult struct {
	ID          string `json:"id,omitempty"`
	Status      Status `json:"status"`
	MediaURL    string `json:"media_url"`
	OriginalURL string `json:"original_url"`
}
