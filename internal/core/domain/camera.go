package domain

import (
	"strings"
	"time"
)

type CameraID string
type ViewerSessionID string
type ArtifactID string

// QualityTier selects one of the named sub-streams an RTSP-capable
// camera offers. RTMP sources expose only the main stream.
type QualityTier string

const (
	TierMain  QualityTier = "main"
	TierSub   QualityTier = "sub"
	TierThird QualityTier = "third"
)

// ParseQualityTier maps a request string to a tier, defaulting to main.
func ParseQualityTier(s string) (QualityTier, bool) {
	switch QualityTier(s) {
	case TierMain, "":
		return TierMain, true
	case TierSub:
		return TierSub, true
	case TierThird:
		return TierThird, true
	}
	return TierMain, false
}

// Camera is read-only reference data supplied by the metadata service.
type Camera struct {
	ID           CameraID
	DivisionName string
	DistrictName string
	WorkID       string
	RtspURL      string
	RtmpURL      string
	Status       string
	LastUpdated  time.Time
}

// SourceKind reports which upstream protocol the camera offers.
// A camera with both URLs is treated as RTSP-capable.
func (c *Camera) SourceKind() SourceKind {
	if c.RtspURL != "" {
		return SourceRTSP
	}
	if c.RtmpURL != "" {
		return SourceRTMP
	}
	return SourceNone
}

// RecordingID is the identifier recorded footage is archived under.
// RTSP cameras record under their own id. RTMP-only cameras record
// under the stream name, the last path segment of the publish URL.
func (c *Camera) RecordingID() CameraID {
	if c.RtspURL == "" && c.RtmpURL != "" {
		trimmed := strings.TrimSuffix(c.RtmpURL, "/")
		if i := strings.LastIndex(trimmed, "/"); i >= 0 && i+1 < len(trimmed) {
			return CameraID(trimmed[i+1:])
		}
	}
	return c.ID
}

type SourceKind string

const (
	SourceRTSP SourceKind = "rtsp"
	SourceRTMP SourceKind = "rtmp"
	SourceNone SourceKind = "none"
)

// ResolvedSource is the fully qualified upstream address a live session
// connects to, after tier rewriting. It never crosses the API boundary.
type ResolvedSource struct {
	CameraID CameraID
	Kind     SourceKind
	URL      string
	Tier     QualityTier // effective tier after any coercion
	Coerced  bool        // requested tier was coerced to main (RTMP source)
}
