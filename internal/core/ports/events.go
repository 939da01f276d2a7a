package ports

import (
	"context"

	"streamgate/internal/core/domain"
)

// NopEvents discards all lifecycle events.
type NopEvents struct{}

func (NopEvents) LiveSessionStarted(context.Context, domain.CameraID, string) {}
func (NopEvents) LiveSessionStopped(context.Context, domain.CameraID, string) {}
func (NopEvents) ArtifactCreated(context.Context, *domain.PlaybackArtifact)   {}
func (NopEvents) ArtifactDeleted(context.Context, domain.ArtifactID)          {}
func (NopEvents) Close()                                                      {}
