package monitoring

import (
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	viewersConnected    prometheus.Gauge
	liveSessionsActive  prometheus.Gauge
	viewerAttachTotal   *prometheus.CounterVec
	framesFannedOut     prometheus.Counter
	frameBytesFannedOut prometheus.Counter
	tierCoercedTotal    *prometheus.CounterVec

	playbackCreatedTotal prometheus.Counter
	playbackFailedTotal  *prometheus.CounterVec
	extractionDuration   prometheus.Histogram
	extractionQueueDepth prometheus.Gauge
	artifactsSweptTotal  prometheus.Counter
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		viewersConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "streamgate_viewers_connected",
			Help: "Number of currently attached live viewers",
		}),

		liveSessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "streamgate_live_sessions_active",
			Help: "Number of active upstream pulls",
		}),

		viewerAttachTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streamgate_viewer_attach_total",
			Help: "Total viewer attachments per camera",
		}, []string{"camera_id"}),

		framesFannedOut: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamgate_frames_fanned_out_total",
			Help: "Total frame deliveries across all viewers",
		}),

		frameBytesFannedOut: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamgate_frame_bytes_fanned_out_total",
			Help: "Total frame bytes delivered across all viewers",
		}),

		tierCoercedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streamgate_tier_coerced_total",
			Help: "Quality tier requests coerced to main for RTMP sources",
		}, []string{"camera_id"}),

		playbackCreatedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamgate_playback_created_total",
			Help: "Total playback artifacts materialized",
		}),

		playbackFailedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streamgate_playback_failed_total",
			Help: "Total failed playback requests by error code",
		}, []string{"code"}),

		extractionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "streamgate_extraction_duration_seconds",
			Help:    "Time to materialize a playback artifact",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),

		extractionQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "streamgate_extraction_queue_depth",
			Help: "Playback extraction jobs waiting for a worker",
		}),

		artifactsSweptTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamgate_artifacts_swept_total",
			Help: "Total expired artifacts reclaimed by the sweeper",
		}),
	}
}

func (p *PrometheusCollector) ViewerAttached(cameraID domain.CameraID) {
	p.viewersConnected.Inc()
	p.viewerAttachTotal.WithLabelValues(string(cameraID)).Inc()
}

func (p *PrometheusCollector) ViewerDetached(cameraID domain.CameraID) {
	p.viewersConnected.Dec()
}

func (p *PrometheusCollector) LiveSessionStarted() {
	p.liveSessionsActive.Inc()
}

func (p *PrometheusCollector) LiveSessionStopped() {
	p.liveSessionsActive.Dec()
}

func (p *PrometheusCollector) FramesFannedOut(n int, bytes int) {
	p.framesFannedOut.Add(float64(n))
	p.frameBytesFannedOut.Add(float64(n * bytes))
}

func (p *PrometheusCollector) TierCoerced(cameraID domain.CameraID) {
	p.tierCoercedTotal.WithLabelValues(string(cameraID)).Inc()
}

func (p *PrometheusCollector) PlaybackCreated() {
	p.playbackCreatedTotal.Inc()
}

func (p *PrometheusCollector) PlaybackFailed(code string) {
	p.playbackFailedTotal.WithLabelValues(code).Inc()
}

func (p *PrometheusCollector) ExtractionDuration(d time.Duration) {
	p.extractionDuration.Observe(d.Seconds())
}

func (p *PrometheusCollector) ExtractionQueueDepth(n int) {
	p.extractionQueueDepth.Set(float64(n))
}

func (p *PrometheusCollector) ArtifactsSwept(n int) {
	p.artifactsSweptTotal.Add(float64(n))
}

var _ ports.MetricsRecorder = (*PrometheusCollector)(nil)
