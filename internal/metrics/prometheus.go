package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the audiomh service
type Metrics struct {
	// Capture metrics
	BlocksCaptured prometheus.Counter
	BlocksDropped  prometheus.Counter
	QueueDepth     prometheus.Gauge

	// Segmentation metrics
	BlocksProcessed   prometheus.Counter
	SegmentsEmitted   prometheus.Counter
	SegmentsDiscarded prometheus.Counter
	SegmentDuration   prometheus.Histogram

	// Export metrics
	ExportsInFlight       prometheus.Gauge
	ExportFailures        *prometheus.CounterVec
	TranscriptionDuration prometheus.Histogram
	TranscriptionsDropped prometheus.Counter
	LinesDelivered        prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		BlocksCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audiomh_blocks_captured_total",
			Help: "Total number of sample blocks received from the capture device",
		}),
		BlocksDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audiomh_blocks_dropped_total",
			Help: "Total number of sample blocks dropped because the queue was full",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "audiomh_capture_queue_depth",
			Help: "Current number of sample blocks queued for segmentation",
		}),

		BlocksProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audiomh_blocks_processed_total",
			Help: "Total number of sample blocks processed by the segmenter",
		}),
		SegmentsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audiomh_segments_emitted_total",
			Help: "Total number of speech segments emitted for export",
		}),
		SegmentsDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audiomh_segments_discarded_total",
			Help: "Total number of pending segments discarded for insufficient speech",
		}),
		SegmentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "audiomh_segment_duration_seconds",
			Help:    "Duration of emitted speech segments",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s to 32s
		}),

		ExportsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "audiomh_exports_in_flight",
			Help: "Current number of segment exports in progress",
		}),
		ExportFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "audiomh_export_failures_total",
			Help: "Total number of failed segment exports by pipeline stage",
		}, []string{"stage"}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "audiomh_transcription_duration_seconds",
			Help:    "Duration of transcription API requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		TranscriptionsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audiomh_transcriptions_dropped_total",
			Help: "Total number of transcriptions discarded by the post-filter",
		}),
		LinesDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audiomh_lines_delivered_total",
			Help: "Total number of transcription lines delivered downstream",
		}),
	}
}
