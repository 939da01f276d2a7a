package services

import (
	"context"
	"strings"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"

	"go.uber.org/zap"
)

// tierSuffixes follows the upstream encoder's sub-stream naming: the
// trailing ".264" segment selects the variant.
var tierSuffixes = map[domain.QualityTier]string{
	domain.TierSub:   "_third.264",
	domain.TierThird: "_fourth.264",
}

type resolverService struct {
	cameras ports.CameraRepository
	logger  *zap.SugaredLogger

	onCoercion func(cameraID domain.CameraID, requested domain.QualityTier)
}

// NewStreamResolver builds the resolver mapping (camera, tier) to an
// upstream source URL. onCoercion is invoked whenever an RTMP-only
// camera forces a non-main tier down to main; nil disables the hook.
func NewStreamResolver(
	cameras ports.CameraRepository,
	logger *zap.SugaredLogger,
	onCoercion func(cameraID domain.CameraID, requested domain.QualityTier),
) ports.StreamResolver {
	return &resolverService{
		cameras:    cameras,
		logger:     logger,
		onCoercion: onCoercion,
	}
}

func (s *resolverService) Resolve(ctx context.Context, cameraID domain.CameraID, tier domain.QualityTier) (domain.ResolvedSource, error) {
	cam, err := s.cameras.GetByID(ctx, cameraID)
	if err != nil {
		return domain.ResolvedSource{}, err
	}

	switch cam.SourceKind() {
	case domain.SourceRTSP:
		return domain.ResolvedSource{
			CameraID: cameraID,
			Kind:     domain.SourceRTSP,
			URL:      RewriteTierPath(cam.RtspURL, tier),
			Tier:     tier,
		}, nil

	case domain.SourceRTMP:
		coerced := tier != domain.TierMain
		if coerced {
			s.logger.Infow("quality tier coerced to main for rtmp source",
				"camera_id", cameraID,
				"requested_tier", tier,
			)
			if s.onCoercion != nil {
				s.onCoercion(cameraID, tier)
			}
		}
		return domain.ResolvedSource{
			CameraID: cameraID,
			Kind:     domain.SourceRTMP,
			URL:      cam.RtmpURL,
			Tier:     domain.TierMain,
			Coerced:  coerced,
		}, nil

	default:
		return domain.ResolvedSource{}, domain.ErrCameraNotFound
	}
}

// RewriteTierPath rewrites the trailing file-extension segment of an
// RTSP path to select a sub-stream. It is pure and idempotent: main
// leaves the path untouched, and a path already carrying a variant
// suffix no longer ends in a bare ".264" so a second rewrite is a no-op.
func RewriteTierPath(path string, tier domain.QualityTier) string {
	suffix, ok := tierSuffixes[tier]
	if !ok {
		return path
	}
	for _, s := range tierSuffixes {
		if strings.HasSuffix(path, s) {
			return path
		}
	}
	if strings.HasSuffix(path, ".264") {
		return strings.TrimSuffix(path, ".264") + suffix
	}
	return path
}
