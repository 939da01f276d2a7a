package ports

import (
	"context"
	"time"

	"streamgate/internal/core/domain"
)

// StreamResolver maps (camera, requested tier) to the upstream source a
// live session connects to. Resolution happens server-side only.
type StreamResolver interface {
	Resolve(ctx context.Context, cameraID domain.CameraID, tier domain.QualityTier) (domain.ResolvedSource, error)
}

// LiveViewer is one attached consumer of a shared live session. Frames
// arrive in upstream order; the channel is closed on teardown and Err
// reports the cause (nil for a plain detach).
type LiveViewer interface {
	Frames() <-chan []byte
	Err() error
}

// LiveProxy shares one upstream pull per resolved URL across viewers.
type LiveProxy interface {
	Attach(ctx context.Context, cameraID domain.CameraID, tier domain.QualityTier) (LiveViewer, error)
	Detach(viewer LiveViewer)
	// ActiveSessions reports the number of live upstream pulls.
	ActiveSessions() int
	Shutdown(ctx context.Context)
}

// PlaybackBroker materializes and destroys time-bounded playback
// artifacts. Create blocks until the artifact is fully written.
type PlaybackBroker interface {
	Create(ctx context.Context, req domain.PlaybackRequest) (*domain.PlaybackArtifact, error)
	// Delete is idempotent: deleting an absent id is a no-op success.
	Delete(ctx context.Context, id domain.ArtifactID) error
	Get(id domain.ArtifactID) (*domain.PlaybackArtifact, bool)
	Shutdown(ctx context.Context)
}

// ViewerService owns per-viewer session state machines and gates
// quality, navigation and playback operations.
type ViewerService interface {
	CreateSession(ctx context.Context, cameras []domain.CameraID, startIndex int) (*domain.ViewerSession, error)
	GetSession(id domain.ViewerSessionID) (*domain.ViewerSession, error)
	EndSession(ctx context.Context, id domain.ViewerSessionID) error
	ChangeQuality(ctx context.Context, id domain.ViewerSessionID, tier domain.QualityTier) (*domain.ViewerSession, error)
	Navigate(ctx context.Context, id domain.ViewerSessionID, dir domain.NavigateDirection) (*domain.ViewerSession, error)
	StartPlayback(ctx context.Context, id domain.ViewerSessionID, start, end time.Time) (*domain.PlaybackArtifact, error)
	ClosePlayback(ctx context.Context, id domain.ViewerSessionID) error
}

// MediaEngine is the external process handling codec work: pulling
// frames from a live source and packaging recorded segments into a clip.
type MediaEngine interface {
	// PullFrames connects to the source and invokes onFrame for every
	// frame until ctx is cancelled or the upstream ends. The connect
	// attempt is bounded by connectTimeout.
	PullFrames(ctx context.Context, sourceURL string, connectTimeout time.Duration, onFrame func(frame []byte) error) error
	// PackageClip concatenates locally staged segment files into a
	// seekable clip at outputPath.
	PackageClip(ctx context.Context, segmentPaths []string, outputPath string) error
}

// EventPublisher emits gateway lifecycle events for the dashboard.
type EventPublisher interface {
	LiveSessionStarted(ctx context.Context, cameraID domain.CameraID, sourceURL string)
	LiveSessionStopped(ctx context.Context, cameraID domain.CameraID, reason string)
	ArtifactCreated(ctx context.Context, artifact *domain.PlaybackArtifact)
	ArtifactDeleted(ctx context.Context, id domain.ArtifactID)
	Close()
}
