package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// viewerState pairs the session snapshot with its own lock so one
// misbehaving client cannot stall transitions for other sessions.
type viewerState struct {
	mu      sync.Mutex
	session domain.ViewerSession
}

type viewerService struct {
	cameras       ports.CameraRepository
	broker        ports.PlaybackBroker
	logger        *zap.SugaredLogger
	deleteTimeout time.Duration

	mu       sync.RWMutex
	sessions map[domain.ViewerSessionID]*viewerState
}

// NewViewerService builds the per-viewer state machine gating quality,
// navigation and playback operations. It is the authority on what a
// session may do; client-side control state is advisory only.
func NewViewerService(
	cameras ports.CameraRepository,
	broker ports.PlaybackBroker,
	logger *zap.SugaredLogger,
	deleteTimeout time.Duration,
) ports.ViewerService {
	return &viewerService{
		cameras:       cameras,
		broker:        broker,
		logger:        logger,
		deleteTimeout: deleteTimeout,
		sessions:      make(map[domain.ViewerSessionID]*viewerState),
	}
}

func (s *viewerService) CreateSession(ctx context.Context, cameras []domain.CameraID, startIndex int) (*domain.ViewerSession, error) {
	if len(cameras) == 0 {
		return nil, fmt.Errorf("viewer session needs at least one camera")
	}
	if startIndex < 0 || startIndex >= len(cameras) {
		startIndex = 0
	}

	// Verify every camera exists up front; a stale grid is a client bug
	// worth rejecting early.
	for _, id := range cameras {
		if _, err := s.cameras.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}

	session := domain.ViewerSession{
		ID:          domain.ViewerSessionID(uuid.NewString()),
		Cameras:     cameras,
		ActiveIndex: startIndex,
		Tier:        domain.TierMain,
		Mode:        domain.ModeLive,
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = &viewerState{session: session}
	s.mu.Unlock()

	s.logger.Infow("viewer session created",
		"viewer_session_id", session.ID,
		"cameras", len(cameras),
		"start_index", startIndex,
	)

	snapshot := session
	return &snapshot, nil
}

func (s *viewerService) GetSession(id domain.ViewerSessionID) (*domain.ViewerSession, error) {
	state, err := s.state(id)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	snapshot := state.session
	return &snapshot, nil
}

func (s *viewerService) EndSession(ctx context.Context, id domain.ViewerSessionID) error {
	s.mu.Lock()
	state, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}

	// Best-effort cleanup of a still-active artifact.
	state.mu.Lock()
	artifact := state.session.ActiveArtifact
	state.mu.Unlock()

	if artifact != "" {
		if err := s.broker.Delete(ctx, artifact); err != nil {
			s.logger.Warnw("failed to delete artifact on session end",
				"viewer_session_id", id,
				"artifact_id", artifact,
				"error", err,
			)
		}
	}

	s.logger.Infow("viewer session ended", "viewer_session_id", id)
	return nil
}

func (s *viewerService) ChangeQuality(ctx context.Context, id domain.ViewerSessionID, tier domain.QualityTier) (*domain.ViewerSession, error) {
	state, err := s.state(id)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.session.Mode != domain.ModeLive {
		s.logDefect(id, "quality change", state.session.Mode)
		return nil, fmt.Errorf("%w: quality change requires live mode, session is %s",
			domain.ErrInvalidStateTransition, state.session.Mode)
	}

	state.session.Tier = tier
	snapshot := state.session
	return &snapshot, nil
}

func (s *viewerService) Navigate(ctx context.Context, id domain.ViewerSessionID, dir domain.NavigateDirection) (*domain.ViewerSession, error) {
	state, err := s.state(id)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.session.Mode != domain.ModeLive {
		s.logDefect(id, "navigation", state.session.Mode)
		return nil, fmt.Errorf("%w: navigation requires live mode, session is %s",
			domain.ErrInvalidStateTransition, state.session.Mode)
	}

	count := len(state.session.Cameras)
	switch dir {
	case domain.NavigateNext:
		state.session.ActiveIndex = (state.session.ActiveIndex + 1) % count
	case domain.NavigatePrevious:
		state.session.ActiveIndex = (state.session.ActiveIndex - 1 + count) % count
	default:
		return nil, fmt.Errorf("unknown navigate direction: %s", dir)
	}

	snapshot := state.session
	return &snapshot, nil
}

// StartPlayback forwards a playback request to the broker, but only
// from state Live. At most one outstanding create is permitted per
// session, so racing duplicate requests cannot produce a second
// artifact: the loser of the race fails the state check.
func (s *viewerService) StartPlayback(ctx context.Context, id domain.ViewerSessionID, start, end time.Time) (*domain.PlaybackArtifact, error) {
	state, err := s.state(id)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	if state.session.Mode != domain.ModeLive {
		mode := state.session.Mode
		state.mu.Unlock()
		s.logDefect(id, "playback request", mode)
		return nil, fmt.Errorf("%w: playback requires live mode, session is %s",
			domain.ErrInvalidStateTransition, mode)
	}
	state.session.Mode = domain.ModeTransitioningToPlayback
	cameraID := state.session.ActiveCamera()
	state.mu.Unlock()

	// Recordings for RTMP-only cameras are archived under the stream
	// name, not the camera id.
	recordingID := cameraID
	if cam, lookupErr := s.cameras.GetByID(ctx, cameraID); lookupErr == nil {
		recordingID = cam.RecordingID()
	}

	artifact, err := s.broker.Create(ctx, domain.PlaybackRequest{
		CameraID:  recordingID,
		StartTime: start,
		EndTime:   end,
	})

	state.mu.Lock()
	defer state.mu.Unlock()

	if err != nil {
		state.session.Mode = domain.ModeLive
		return nil, err
	}

	state.session.Mode = domain.ModePlayback
	state.session.ActiveArtifact = artifact.ID

	s.logger.Infow("viewer session entered playback",
		"viewer_session_id", id,
		"artifact_id", artifact.ID,
	)

	return artifact, nil
}

// ClosePlayback returns the session to Live, deleting the active
// artifact. The delete is bounded; on timeout the session still
// returns to Live and the broker's expiry sweep reclaims the file.
func (s *viewerService) ClosePlayback(ctx context.Context, id domain.ViewerSessionID) error {
	state, err := s.state(id)
	if err != nil {
		return err
	}

	state.mu.Lock()
	if state.session.Mode != domain.ModePlayback {
		mode := state.session.Mode
		state.mu.Unlock()
		s.logDefect(id, "playback close", mode)
		return fmt.Errorf("%w: playback close requires playback mode, session is %s",
			domain.ErrInvalidStateTransition, mode)
	}
	state.session.Mode = domain.ModeTransitioningToLive
	artifact := state.session.ActiveArtifact
	state.mu.Unlock()

	deleteCtx, cancel := context.WithTimeout(ctx, s.deleteTimeout)
	defer cancel()

	if err := s.broker.Delete(deleteCtx, artifact); err != nil {
		s.logger.Warnw("artifact delete failed on playback close",
			"viewer_session_id", id,
			"artifact_id", artifact,
			"error", err,
		)
	}

	state.mu.Lock()
	state.session.Mode = domain.ModeLive
	state.session.ActiveArtifact = ""
	state.mu.Unlock()

	s.logger.Infow("viewer session returned to live", "viewer_session_id", id)
	return nil
}

func (s *viewerService) state(id domain.ViewerSessionID) (*viewerState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return state, nil
}

// logDefect records a contract violation: a correctly behaving client
// disables these controls outside Live mode.
func (s *viewerService) logDefect(id domain.ViewerSessionID, op string, mode domain.ViewerMode) {
	s.logger.Warnw("rejected operation in invalid session state",
		"viewer_session_id", id,
		"operation", op,
		"mode", mode,
	)
}
