package domain

import "time"

// PlaybackRequest asks for a time-bounded clip of recorded footage.
type PlaybackRequest struct {
	CameraID  CameraID
	StartTime time.Time
	EndTime   time.Time
}

// PlaybackArtifact is a materialized clip addressed by a single-use
// opaque id. The id is issued only after the file is fully written, so
// delete-before-creation-completes cannot occur.
type PlaybackArtifact struct {
	ID        ArtifactID
	CameraID  CameraID
	VideoURL  string
	FilePath  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (a *PlaybackArtifact) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// RecordingSegment locates one stored segment overlapping a playback
// window inside the external recording store.
type RecordingSegment struct {
	CameraID CameraID
	Key      string
	Start    time.Time
	End      time.Time
	Size     int64
}
