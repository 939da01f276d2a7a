package ports

import (
	"time"

	"streamgate/internal/core/domain"
)

// MetricsRecorder receives gateway measurements. Implemented by the
// Prometheus collector; a no-op implementation is used in tests.
type MetricsRecorder interface {
	ViewerAttached(cameraID domain.CameraID)
	ViewerDetached(cameraID domain.CameraID)
	LiveSessionStarted()
	LiveSessionStopped()
	FramesFannedOut(n int, bytes int)
	TierCoerced(cameraID domain.CameraID)

	PlaybackCreated()
	PlaybackFailed(code string)
	ExtractionDuration(d time.Duration)
	ExtractionQueueDepth(n int)
	ArtifactsSwept(n int)
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) ViewerAttached(domain.CameraID)   {}
func (NopMetrics) ViewerDetached(domain.CameraID)   {}
func (NopMetrics) LiveSessionStarted()              {}
func (NopMetrics) LiveSessionStopped()              {}
func (NopMetrics) FramesFannedOut(int, int)         {}
func (NopMetrics) TierCoerced(domain.CameraID)      {}
func (NopMetrics) PlaybackCreated()                 {}
func (NopMetrics) PlaybackFailed(string)            {}
func (NopMetrics) ExtractionDuration(time.Duration) {}
func (NopMetrics) ExtractionQueueDepth(int)         {}
func (NopMetrics) ArtifactsSwept(int)               {}
