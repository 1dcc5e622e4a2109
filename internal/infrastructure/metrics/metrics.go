package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Watermark-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artforge",
			Subsystem: "watermark_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "artforge",
			Subsystem: "watermark_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	// Composite counters, labelled by media kind (image/video)
	CompositesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artforge",
			Subsystem: "watermark_api",
			Name:      "composites_total",
			Help:      "Total watermark compositing operations",
		},
		[]string{"kind", "status"},
	)

	// Composite duration histogram
	CompositeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "artforge",
			Subsystem: "watermark_api",
			Name:      "composite_duration_seconds",
			Help:      "Watermark compositing duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	// Times a compositing failure fell back to serving the original URL
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artforge",
			Subsystem: "watermark_api",
			Name:      "original_fallbacks_total",
			Help:      "Composite failures that fell back to the unwatermarked original",
		},
		[]string{"kind"},
	)

	// Store operations counter
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artforge",
			Subsystem: "watermark_api",
			Name:      "store_operations_total",
			Help:      "Total media store operations",
		},
		[]string{"operation", "status"},
	)

	// Original downloads proxied through the unlock flow
	OriginalDownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artforge",
			Subsystem: "watermark_api",
			Name:      "original_downloads_total",
			Help:      "Server-side proxied downloads of original media",
		},
		[]string{"status"},
	)
)
