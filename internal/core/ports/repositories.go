package ports

import (
	"context"
	"io"
	"time"

	"streamgate/internal/core/domain"
)

// CameraRepository supplies read-only Camera records. The dashboard CRUD
// API owns writes; this core never mutates camera metadata.
type CameraRepository interface {
	GetByID(ctx context.Context, id domain.CameraID) (*domain.Camera, error)
	List(ctx context.Context) ([]*domain.Camera, error)
}

// RecordingStore is the external store of recorded footage, queried by
// (camera, window). Internal format and retention are out of scope.
type RecordingStore interface {
	// FindSegments returns the stored segments overlapping the window,
	// ordered by start time. An empty result means no footage exists.
	FindSegments(ctx context.Context, cameraID domain.CameraID, start, end time.Time) ([]domain.RecordingSegment, error)
	// OpenSegment streams one segment's bytes.
	OpenSegment(ctx context.Context, seg domain.RecordingSegment) (io.ReadCloser, error)
}
