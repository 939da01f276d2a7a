package redis

import (
	"context"
	"encoding/json"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	cameraKeyPrefix = "streamgate:camera:"
	cameraListKey   = "streamgate:cameras:all"
)

// CachedCameraRepository is a read-through cache in front of the real
// metadata repository. Camera records change rarely (the dashboard CRUD
// API owns them), so a short TTL keeps resolution off the database on
// the hot attach path.
type CachedCameraRepository struct {
	base   ports.CameraRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.SugaredLogger
}

func NewCachedCameraRepository(base ports.CameraRepository, client *redis.Client, ttl time.Duration, logger *zap.SugaredLogger) *CachedCameraRepository {
	return &CachedCameraRepository{
		base:   base,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *CachedCameraRepository) GetByID(ctx context.Context, id domain.CameraID) (*domain.Camera, error) {
	key := cameraKeyPrefix + string(id)

	data, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		cam := &domain.Camera{}
		if err := json.Unmarshal(data, cam); err == nil {
			return cam, nil
		}
		// Corrupt entry, fall through to the source of truth.
		r.client.Del(ctx, key)
	} else if err != redis.Nil {
		r.logger.Warnw("camera cache read failed, falling back", "camera_id", id, "error", err)
	}

	cam, err := r.base.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.store(ctx, key, cam)
	return cam, nil
}

func (r *CachedCameraRepository) List(ctx context.Context) ([]*domain.Camera, error) {
	data, err := r.client.Get(ctx, cameraListKey).Bytes()
	if err == nil {
		var cameras []*domain.Camera
		if err := json.Unmarshal(data, &cameras); err == nil {
			return cameras, nil
		}
		r.client.Del(ctx, cameraListKey)
	}

	cameras, err := r.base.List(ctx)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(cameras); err == nil {
		if err := r.client.Set(ctx, cameraListKey, encoded, r.ttl).Err(); err != nil {
			r.logger.Warnw("camera list cache write failed", "error", err)
		}
	}
	return cameras, nil
}

func (r *CachedCameraRepository) store(ctx context.Context, key string, cam *domain.Camera) {
	encoded, err := json.Marshal(cam)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, encoded, r.ttl).Err(); err != nil {
		r.logger.Warnw("camera cache write failed", "key", key, "error", err)
	}
}

var _ ports.CameraRepository = (*CachedCameraRepository)(nil)
