package domain

import "time"

// ViewerMode is the state of a viewer session's state machine.
type ViewerMode string

const (
	ModeLive                    ViewerMode = "live"
	ModeTransitioningToPlayback ViewerMode = "transitioning_to_playback"
	ModePlayback                ViewerMode = "playback"
	ModeTransitioningToLive     ViewerMode = "transitioning_to_live"
)

// ViewerSession is the server-held state for one grid instance. It is
// ephemeral and never persisted.
type ViewerSession struct {
	ID          ViewerSessionID
	Cameras     []CameraID
	ActiveIndex int
	Tier        QualityTier
	Mode        ViewerMode
	// ActiveArtifact is set while Mode is Playback; at most one at a time.
	ActiveArtifact ArtifactID
	CreatedAt      time.Time
}

// ActiveCamera returns the camera the session currently points at.
func (s *ViewerSession) ActiveCamera() CameraID {
	if len(s.Cameras) == 0 {
		return ""
	}
	return s.Cameras[s.ActiveIndex]
}

type NavigateDirection string

const (
	NavigateNext     NavigateDirection = "next"
	NavigatePrevious NavigateDirection = "previous"
)
