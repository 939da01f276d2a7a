package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	subjectLiveStarted     = "streamgate.live.started"
	subjectLiveStopped     = "streamgate.live.stopped"
	subjectArtifactCreated = "streamgate.playback.created"
	subjectArtifactDeleted = "streamgate.playback.deleted"
)

// NATSPublisher emits gateway lifecycle events for the dashboard.
// Publishing is best effort: a broken broker degrades observability,
// never streaming.
type NATSPublisher struct {
	nc     *nats.Conn
	logger *zap.SugaredLogger
}

func NewNATSPublisher(natsURL string, logger *zap.SugaredLogger) (*NATSPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	return &NATSPublisher{nc: nc, logger: logger}, nil
}

type liveSessionEvent struct {
	CameraID  string    `json:"camera_id"`
	SourceURL string    `json:"source_url,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

type artifactEvent struct {
	ArtifactID string    `json:"artifact_id"`
	CameraID   string    `json:"camera_id,omitempty"`
	VideoURL   string    `json:"video_url,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
	At         time.Time `json:"at"`
}

func (p *NATSPublisher) LiveSessionStarted(ctx context.Context, cameraID domain.CameraID, sourceURL string) {
	p.publish(subjectLiveStarted, liveSessionEvent{
		CameraID:  string(cameraID),
		SourceURL: sourceURL,
		At:        time.Now().UTC(),
	})
}

func (p *NATSPublisher) LiveSessionStopped(ctx context.Context, cameraID domain.CameraID, reason string) {
	p.publish(subjectLiveStopped, liveSessionEvent{
		CameraID: string(cameraID),
		Reason:   reason,
		At:       time.Now().UTC(),
	})
}

func (p *NATSPublisher) ArtifactCreated(ctx context.Context, artifact *domain.PlaybackArtifact) {
	p.publish(subjectArtifactCreated, artifactEvent{
		ArtifactID: string(artifact.ID),
		CameraID:   string(artifact.CameraID),
		VideoURL:   artifact.VideoURL,
		ExpiresAt:  artifact.ExpiresAt,
		At:         time.Now().UTC(),
	})
}

func (p *NATSPublisher) ArtifactDeleted(ctx context.Context, id domain.ArtifactID) {
	p.publish(subjectArtifactDeleted, artifactEvent{
		ArtifactID: string(id),
		At:         time.Now().UTC(),
	})
}

func (p *NATSPublisher) publish(subject string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Warnw("failed to marshal event", "subject", subject, "error", err)
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Warnw("failed to publish event", "subject", subject, "error", err)
	}
}

func (p *NATSPublisher) Close() {
	p.nc.Close()
}

var _ ports.EventPublisher = (*NATSPublisher)(nil)
